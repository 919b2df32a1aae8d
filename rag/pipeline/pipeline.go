// Package pipeline answers one government-services question end to end:
// language detection, translation, rewriting, routing, scoped retrieval,
// intent filtering, synthesis and next-step advice.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	errorskg "github.com/sweetpotato0/govassist/errors"
	"github.com/sweetpotato0/govassist/graph"
	"github.com/sweetpotato0/govassist/lang"
	"github.com/sweetpotato0/govassist/message"
	"github.com/sweetpotato0/govassist/pkg/logging"
	"github.com/sweetpotato0/govassist/pkg/metrics"
	"github.com/sweetpotato0/govassist/rag/intent"
	"github.com/sweetpotato0/govassist/rag/passage"
	"github.com/sweetpotato0/govassist/rag/rewrite"
	"github.com/sweetpotato0/govassist/rag/synthesizer"
	"github.com/sweetpotato0/govassist/rag/translate"
	"github.com/sweetpotato0/govassist/service"
	"go.opentelemetry.io/otel/trace"
)

// Clarification is returned when no service can be resolved for a question.
const Clarification = "I'm not sure which government service your question is about. " +
	"Please choose one of: Ration Card, Birth Certificate or Unemployment Allowance, and ask again."

// Top-k bounds.
const (
	DefaultTopK = 3
	MaxTopK     = 10
)

// Degraded stage names reported in AnswerResult.Degraded and metrics.
const (
	StageTranslateIn  = "translate_in"
	StageRewrite      = "rewrite"
	StageSynthesize   = "synthesize"
	StageTranslateOut = "translate_out"
)

// Translator translates text between Malayalam and English.
type Translator interface {
	Translate(ctx context.Context, text string, dir translate.Direction) translate.Result
}

// Rewriter turns a follow-up into a standalone question.
type Rewriter interface {
	Rewrite(ctx context.Context, query string, history []message.Message) rewrite.Result
}

// Router resolves the service a question is about.
type Router interface {
	Route(ctx context.Context, query string, choice service.ID) (service.ID, bool)
}

// Retriever searches one service collection.
type Retriever interface {
	Search(ctx context.Context, query string, svc service.ID, k int) ([]passage.Passage, error)
	Has(svc service.ID) bool
}

// Synthesizer writes the grounded answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, passages []passage.Passage, history []message.Message) synthesizer.Answer
}

// Advisor suggests follow-up intents.
type Advisor interface {
	Advise(svc service.ID, current intent.Intent) []intent.Intent
}

// Components are the collaborators the pipeline sequences. Router, Retriever
// and Synthesizer are required.
type Components struct {
	Translator  Translator
	Rewriter    Rewriter
	Router      Router
	Retriever   Retriever
	Synthesizer Synthesizer
	Advisor     Advisor
}

// Request is one question.
type Request struct {
	Query          string            `json:"query"`
	Service        service.ID        `json:"service,omitempty"`
	TopK           int               `json:"top_k,omitempty"`
	IncludeSources bool              `json:"include_sources"`
	History        []message.Message `json:"history,omitempty"`
}

// AnswerResult is the response to a Request.
type AnswerResult struct {
	Query    string            `json:"query"`
	Answer   string            `json:"answer"`
	Language lang.Language     `json:"language"`
	Sources  []passage.Passage `json:"sources"`
	// Service is nil when the question could not be routed.
	Service         *service.ID     `json:"service"`
	Intent          intent.Intent   `json:"intent,omitempty"`
	NextSteps       []intent.Intent `json:"next_steps"`
	StandaloneQuery string          `json:"standalone_query,omitempty"`
	// Degraded lists stages that fell back to their input or to passages.
	Degraded []string `json:"degraded,omitempty"`
}

// RetrieveRequest asks for raw passages from one service.
type RetrieveRequest struct {
	Query   string     `json:"query"`
	Service service.ID `json:"service"`
	TopK    int        `json:"top_k,omitempty"`
}

// RetrieveResult carries raw passages without synthesis.
type RetrieveResult struct {
	Query   string            `json:"query"`
	Service service.ID        `json:"service"`
	Results []passage.Passage `json:"results"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTopK overrides the default and maximum number of passages retrieved.
func WithTopK(defaultK, maxK int) Option {
	return func(p *Pipeline) {
		if maxK > 0 {
			p.maxTopK = maxK
		}
		if defaultK > 0 {
			p.defaultTopK = min(defaultK, p.maxTopK)
		}
	}
}

// WithMetrics records request outcomes, degraded stages and stage timings.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithTracer opens a span per stage. A nil tracer uses the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = t
		p.tracing = true
	}
}

// Pipeline is safe for concurrent use; every request carries its own state.
type Pipeline struct {
	c           Components
	defaultTopK int
	maxTopK     int
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	tracing     bool
	graph       *graph.Graph[*state]
	logger      *slog.Logger
}

// New wires the stages into an execution graph.
func New(c Components, opts ...Option) (*Pipeline, error) {
	if c.Router == nil || c.Retriever == nil || c.Synthesizer == nil {
		return nil, fmt.Errorf("%w: router, retriever and synthesizer are required", errorskg.ErrInvalidInput)
	}
	p := &Pipeline{
		c:           c,
		defaultTopK: DefaultTopK,
		maxTopK:     MaxTopK,
		logger:      logging.WithComponent("pipeline"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	g, err := p.build()
	if err != nil {
		return nil, fmt.Errorf("build pipeline graph: %w", err)
	}
	p.graph = g
	return p, nil
}

// Ask answers req. Invalid input and an explicitly requested service with no
// collection are errors; every provider failure degrades instead.
func (p *Pipeline) Ask(ctx context.Context, req Request) (*AnswerResult, error) {
	k, err := p.validate(req.Query, req.TopK, req.History)
	if err != nil {
		p.metrics.ObserveRequest(metrics.OutcomeError)
		return nil, err
	}
	if req.Service != "" && !p.c.Retriever.Has(req.Service) {
		p.metrics.ObserveRequest(metrics.OutcomeError)
		return nil, fmt.Errorf("%w: %q", errorskg.ErrServiceNotFound, req.Service)
	}

	st := &state{req: req, topK: k}
	st, err = p.graph.Execute(ctx, st)
	if err != nil {
		p.metrics.ObserveRequest(metrics.OutcomeError)
		return nil, err
	}

	for _, stage := range st.degraded {
		p.metrics.ObserveDegraded(stage)
	}
	p.metrics.ObserveRequest(st.outcome)
	return st.result(req.IncludeSources), nil
}

// Retrieve returns raw passages for debugging. The service is mandatory.
func (p *Pipeline) Retrieve(ctx context.Context, req RetrieveRequest) (*RetrieveResult, error) {
	k, err := p.validate(req.Query, req.TopK, nil)
	if err != nil {
		return nil, err
	}
	if req.Service == "" {
		return nil, errorskg.ErrServiceRequired
	}
	passages, err := p.c.Retriever.Search(ctx, req.Query, req.Service, k)
	if err != nil {
		return nil, err
	}
	return &RetrieveResult{
		Query:   req.Query,
		Service: req.Service,
		Results: nonNil(passages),
	}, nil
}

func (p *Pipeline) validate(query string, topK int, history []message.Message) (int, error) {
	if strings.TrimSpace(query) == "" {
		return 0, fmt.Errorf("%w: query is required", errorskg.ErrInvalidInput)
	}
	if topK < 0 {
		return 0, fmt.Errorf("%w: top_k must not be negative, got %d", errorskg.ErrInvalidInput, topK)
	}
	for i, turn := range history {
		if err := turn.Validate(); err != nil {
			return 0, fmt.Errorf("%w: history[%d]: %v", errorskg.ErrInvalidInput, i, err)
		}
	}
	if topK == 0 {
		return p.defaultTopK, nil
	}
	return min(topK, p.maxTopK), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
