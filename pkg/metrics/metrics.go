// Package metrics exposes Prometheus instrumentation for the query pipeline.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sweetpotato0/govassist/graph"
	"github.com/sweetpotato0/govassist/provider"
)

// Request outcomes.
const (
	OutcomeAnswered  = "answered"
	OutcomeClarify   = "clarify"
	OutcomeNoResults = "no_results"
	OutcomeError     = "error"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	providerAttempts *prometheus.CounterVec
	degraded         *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
}

// New creates a registry with the pipeline collectors plus the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govassist_requests_total",
				Help: "Total number of answered queries by outcome",
			},
			[]string{"outcome"},
		),
		providerAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govassist_provider_attempts_total",
				Help: "Generation attempts per model and outcome",
			},
			[]string{"model", "outcome"},
		),
		degraded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govassist_degraded_total",
				Help: "Pipeline stages that fell back to a degraded result",
			},
			[]string{"stage"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "govassist_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{.005, .025, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest counts one finished request.
func (m *Metrics) ObserveRequest(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

// ObserveDegraded counts a stage that fell back.
func (m *Metrics) ObserveDegraded(stage string) {
	if m == nil {
		return
	}
	m.degraded.WithLabelValues(stage).Inc()
}

// ObserveStage records the duration of a pipeline stage.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ProviderObserver returns a provider.Chain observer counting attempts.
func (m *Metrics) ProviderObserver() provider.Observer {
	return func(model string, outcome provider.Outcome, _ time.Duration) {
		if m == nil {
			return
		}
		m.providerAttempts.WithLabelValues(model, outcome.String()).Inc()
	}
}

// StageMiddleware times every graph node under its node name.
func StageMiddleware[S any](m *Metrics) graph.Middleware[S] {
	return func(name string, next graph.NodeFunc[S]) graph.NodeFunc[S] {
		return func(ctx context.Context, state S) (S, error) {
			start := time.Now()
			out, err := next(ctx, state)
			m.ObserveStage(name, time.Since(start))
			return out, err
		}
	}
}
