// Package router picks the government service a query is about.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweetpotato0/govassist/pkg/logging"
	"github.com/sweetpotato0/govassist/service"
	"github.com/sweetpotato0/govassist/vector"
)

// DefaultEmbedTimeout bounds query embedding during routing.
const DefaultEmbedTimeout = 15 * time.Second

// Router combines an explicit caller choice with embedding similarity
// against fixed service descriptions.
type Router struct {
	embedder     vector.Embedder
	services     []service.ID
	vectors      [][]float32
	embedTimeout time.Duration
	logger       *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithEmbedTimeout overrides DefaultEmbedTimeout.
func WithEmbedTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.embedTimeout = d
		}
	}
}

// New embeds the description of every service in service.All order that has
// one in descriptions. When embedding fails the returned router still honours
// explicit choices but never infers a service; the error is returned
// alongside so callers can log it.
func New(ctx context.Context, emb vector.Embedder, descriptions map[service.ID]string, opts ...Option) (*Router, error) {
	r := &Router{
		embedder:     emb,
		embedTimeout: DefaultEmbedTimeout,
		logger:       logging.WithComponent("router"),
	}
	for _, opt := range opts {
		opt(r)
	}

	var texts []string
	for _, id := range service.All() {
		if desc, ok := descriptions[id]; ok && desc != "" {
			r.services = append(r.services, id)
			texts = append(texts, desc)
		}
	}
	if emb == nil {
		return r, fmt.Errorf("router has no embedder")
	}
	if len(texts) == 0 {
		return r, fmt.Errorf("no service descriptions")
	}

	ctx, cancel := context.WithTimeout(ctx, r.embedTimeout)
	defer cancel()
	vectors, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		return r, fmt.Errorf("embed service descriptions: %w", err)
	}
	if len(vectors) != len(texts) {
		return r, fmt.Errorf("expected %d description embeddings, got %d", len(texts), len(vectors))
	}
	r.vectors = make([][]float32, len(vectors))
	for i, v := range vectors {
		r.vectors[i] = vector.Normalized(v)
	}
	return r, nil
}

// Route returns choice when it is a valid service. Otherwise it embeds the
// query and returns the service with the highest inner product; ties go to
// the earlier service. The boolean is false when no service can be resolved.
func (r *Router) Route(ctx context.Context, query string, choice service.ID) (service.ID, bool) {
	if choice.Valid() {
		return choice, true
	}
	if len(r.vectors) == 0 {
		r.logger.Warn("service routing unavailable")
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, r.embedTimeout)
	defer cancel()
	raw, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed during routing", "error", err)
		return "", false
	}
	q := vector.Normalized(raw)

	best, bestScore := -1, float32(0)
	for i, v := range r.vectors {
		score := vector.Dot(q, v)
		if best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	r.logger.Debug("service routed", "service", r.services[best].String(), "score", bestScore)
	return r.services[best], true
}

// Services lists the services the router can infer, in order.
func (r *Router) Services() []service.ID {
	return append([]service.ID(nil), r.services...)
}
