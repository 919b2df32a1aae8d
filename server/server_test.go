package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	errorskg "github.com/sweetpotato0/govassist/errors"
	"github.com/sweetpotato0/govassist/lang"
	"github.com/sweetpotato0/govassist/rag/passage"
	"github.com/sweetpotato0/govassist/rag/pipeline"
	"github.com/sweetpotato0/govassist/service"
)

type fakePipeline struct {
	lastAsk pipeline.Request
	askErr  error
}

func (f *fakePipeline) Ask(_ context.Context, req pipeline.Request) (*pipeline.AnswerResult, error) {
	f.lastAsk = req
	if f.askErr != nil {
		return nil, f.askErr
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", errorskg.ErrInvalidInput)
	}
	return &pipeline.AnswerResult{
		Query:     req.Query,
		Answer:    "Apply at an Akshaya centre.",
		Language:  lang.English,
		Sources:   []passage.Passage{},
		Service:   &req.Service,
		NextSteps: nil,
	}, nil
}

func (f *fakePipeline) Retrieve(_ context.Context, req pipeline.RetrieveRequest) (*pipeline.RetrieveResult, error) {
	switch req.Service {
	case "":
		return nil, errorskg.ErrServiceRequired
	case service.UnemploymentAllowance:
		return nil, fmt.Errorf("%w: %q", errorskg.ErrServiceNotFound, req.Service)
	}
	return &pipeline.RetrieveResult{
		Query:   req.Query,
		Service: req.Service,
		Results: []passage.Passage{{Service: req.Service, Section: "FEES", Text: "Nominal fee."}},
	}, nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestAsk(t *testing.T) {
	fake := &fakePipeline{}
	h := New(fake, ":0").Handler()

	rec := do(t, h, http.MethodPost, "/ask", `{"query":"how to apply","service":"ration_card","history":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var res pipeline.AnswerResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Answer != "Apply at an Akshaya centre." {
		t.Errorf("answer = %q", res.Answer)
	}
	if !fake.lastAsk.IncludeSources {
		t.Error("include_sources should default to true")
	}
	if fake.lastAsk.Service != service.RationCard || len(fake.lastAsk.History) != 1 {
		t.Errorf("forwarded request = %+v", fake.lastAsk)
	}

	do(t, h, http.MethodPost, "/ask", `{"query":"q","include_sources":false}`)
	if fake.lastAsk.IncludeSources {
		t.Error("explicit include_sources=false was ignored")
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		askErr error
		want   int
	}{
		{"malformed body", "/ask", `{"query":`, nil, http.StatusBadRequest},
		{"blank query", "/ask", `{"query":"  "}`, nil, http.StatusBadRequest},
		{"unknown service", "/ask", `{"query":"q","service":"passport"}`, nil, http.StatusNotFound},
		{"unconfigured service", "/ask", `{"query":"q"}`, errorskg.ErrServiceNotFound, http.StatusNotFound},
		{"internal failure", "/ask", `{"query":"q"}`, errors.New("upstream 401 invalid key"), http.StatusInternalServerError},
		{"deadline", "/ask", `{"query":"q"}`, context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"retrieve without service", "/retrieve", `{"query":"fee"}`, nil, http.StatusBadRequest},
		{"retrieve missing collection", "/retrieve", `{"query":"fee","service":"unemployment_allowance"}`, nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(&fakePipeline{askErr: tt.askErr}, ":0").Handler()
			rec := do(t, h, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
			resp := decodeError(t, rec)
			if resp.StatusCode != tt.want || resp.Error != http.StatusText(tt.want) || resp.Timestamp == "" {
				t.Errorf("error body = %+v", resp)
			}
		})
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	h := New(&fakePipeline{askErr: errors.New("upstream 401 invalid key")}, ":0").Handler()
	rec := do(t, h, http.MethodPost, "/ask", `{"query":"q"}`)
	if strings.Contains(rec.Body.String(), "invalid key") {
		t.Errorf("body leaks provider error: %s", rec.Body)
	}
}

func TestRetrieve(t *testing.T) {
	h := New(&fakePipeline{}, ":0").Handler()
	rec := do(t, h, http.MethodPost, "/retrieve", `{"query":"fee","service":"ration_card","top_k":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var res pipeline.RetrieveResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Service != service.RationCard || len(res.Results) != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestServicesAndHealth(t *testing.T) {
	h := New(&fakePipeline{}, ":0", WithServices([]service.ID{service.RationCard})).Handler()

	rec := do(t, h, http.MethodGet, "/services", "")
	var body struct {
		Services []ServiceInfo `json:"services"`
		Count    int           `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || body.Services[0].ID != service.RationCard || body.Services[0].Description == "" {
		t.Errorf("services = %+v", body)
	}

	rec = do(t, h, http.MethodGet, "/healthz", "")
	var health HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || health.Status != "ok" || health.Services != 1 {
		t.Errorf("health = %d %+v", rec.Code, health)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := New(&fakePipeline{}, ":0").Handler()
	if rec := do(t, h, http.MethodGet, "/ask", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /ask = %d, want 405", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	h := New(&fakePipeline{}, ":0").Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "")
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("no request id generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want the caller's", got)
	}
}

func TestCORS(t *testing.T) {
	h := New(&fakePipeline{}, ":0").Handler()
	req := httptest.NewRequest(http.MethodOptions, "/ask", nil)
	req.Header.Set("Origin", "http://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Errorf("preflight missing Access-Control-Allow-Origin, headers %v", rec.Header())
	}
}

func TestOptionalMounts(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("govassist_requests_total 1\n"))
	})
	h := New(&fakePipeline{}, ":0", WithMetricsHandler(metrics)).Handler()
	rec := do(t, h, http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), "govassist_requests_total") {
		t.Errorf("/metrics body = %q", rec.Body)
	}
	if rec := do(t, h, http.MethodPost, "/mcp", "{}"); rec.Code != http.StatusNotFound {
		t.Errorf("/mcp without handler = %d, want 404", rec.Code)
	}
}
