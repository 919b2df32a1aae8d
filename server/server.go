// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"
	errorskg "github.com/sweetpotato0/govassist/errors"
	"github.com/sweetpotato0/govassist/message"
	"github.com/sweetpotato0/govassist/pkg/logging"
	"github.com/sweetpotato0/govassist/rag/pipeline"
	"github.com/sweetpotato0/govassist/service"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const maxBodyBytes = 1 << 20

// Pipeline is what the handlers call.
type Pipeline interface {
	Ask(ctx context.Context, req pipeline.Request) (*pipeline.AnswerResult, error)
	Retrieve(ctx context.Context, req pipeline.RetrieveRequest) (*pipeline.RetrieveResult, error)
}

type (
	// AskRequest is the POST /ask body. IncludeSources defaults to true.
	AskRequest struct {
		Query          string            `json:"query"`
		Service        string            `json:"service,omitempty"`
		TopK           int               `json:"top_k,omitempty"`
		IncludeSources *bool             `json:"include_sources,omitempty"`
		History        []message.Message `json:"history,omitempty"`
	}

	// RetrieveRequest is the POST /retrieve body.
	RetrieveRequest struct {
		Query   string `json:"query"`
		Service string `json:"service"`
		TopK    int    `json:"top_k,omitempty"`
	}

	// ServiceInfo describes one configured collection.
	ServiceInfo struct {
		ID          service.ID `json:"id"`
		Title       string     `json:"title"`
		Description string     `json:"description"`
	}

	// HealthResponse is the GET /healthz body.
	HealthResponse struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
		Services  int    `json:"services"`
	}

	// ErrorResponse is written for every failed request.
	ErrorResponse struct {
		Error      string `json:"error"`
		Message    string `json:"message"`
		StatusCode int    `json:"status_code"`
		Timestamp  string `json:"timestamp"`
	}
)

// Option configures a Server.
type Option func(*Server)

// WithServices sets the collections listed by GET /services.
func WithServices(ids []service.ID) Option {
	return func(s *Server) { s.services = ids }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithMCPHandler mounts h at /mcp.
func WithMCPHandler(h http.Handler) Option {
	return func(s *Server) { s.mcp = h }
}

// WithCORSOrigins restricts allowed origins. The default allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithTimeouts sets the http.Server read and write timeouts.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.server.ReadTimeout = read
		s.server.WriteTimeout = write
	}
}

// Server serves the assistant API.
type Server struct {
	pipeline Pipeline
	services []service.ID
	metrics  http.Handler
	mcp      http.Handler
	origins  []string
	server   *http.Server
	logger   *slog.Logger
}

// New builds a server listening on addr.
func New(p Pipeline, addr string, opts ...Option) *Server {
	s := &Server{
		pipeline: p,
		services: service.All(),
		origins:  []string{"*"},
		logger:   logging.WithComponent("server"),
		server: &http.Server{
			Addr:         addr,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("POST /retrieve", s.handleRetrieve)
	mux.HandleFunc("GET /services", s.handleServices)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	if s.mcp != nil {
		mux.Handle("/mcp", s.mcp)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{RequestIDHeader, "Content-Type", "Mcp-Session-Id"},
	})
	s.server.Handler = c.Handler(s.withRequestID(mux))
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks serving until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := parseService(req.Service)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	includeSources := true
	if req.IncludeSources != nil {
		includeSources = *req.IncludeSources
	}

	res, err := s.pipeline.Ask(r.Context(), pipeline.Request{
		Query:          req.Query,
		Service:        id,
		TopK:           req.TopK,
		IncludeSources: includeSources,
		History:        req.History,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := parseService(req.Service)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	res, err := s.pipeline.Retrieve(r.Context(), pipeline.RetrieveRequest{Query: req.Query, Service: id, TopK: req.TopK})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	out := make([]ServiceInfo, 0, len(s.services))
	for _, id := range s.services {
		out = append(out, ServiceInfo{ID: id, Title: id.Title(), Description: service.Descriptions[id]})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"services": out,
		"count":    len(out),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  len(s.services),
	})
}

// parseService maps unknown names to ErrServiceNotFound.
func parseService(raw string) (service.ID, error) {
	id, err := service.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errorskg.ErrServiceNotFound, err)
	}
	return id, nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeErr(w, r, fmt.Errorf("%w: malformed request body: %v", errorskg.ErrInvalidInput, err))
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errorskg.ErrInvalidInput), errors.Is(err, errorskg.ErrServiceRequired):
		return http.StatusBadRequest
	case errors.Is(err, errorskg.ErrServiceNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeErr hides internal error text from callers; it is only logged.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", requestID(r.Context()), "error", err)
		msg = "the request could not be completed, please try again later"
	}
	s.writeJSON(w, status, ErrorResponse{
		Error:      http.StatusText(status),
		Message:    msg,
		StatusCode: status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response", "error", err)
	}
}
