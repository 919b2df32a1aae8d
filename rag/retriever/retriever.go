package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	errorskg "github.com/sweetpotato0/govassist/errors"
	"github.com/sweetpotato0/govassist/pkg/logging"
	"github.com/sweetpotato0/govassist/rag/passage"
	"github.com/sweetpotato0/govassist/service"
	"github.com/sweetpotato0/govassist/vector"
)

// DefaultTopK is used when a caller passes a non-positive k.
const DefaultTopK = 3

// Config controls retrieval behaviour.
type Config struct {
	DefaultTopK  int
	EmbedTimeout time.Duration
	// IndexBatchSize is the number of passages embedded per request while indexing.
	IndexBatchSize int
}

// Option customizes retriever config.
type Option func(*Config)

// WithDefaultTopK sets the result count used for non-positive k.
func WithDefaultTopK(k int) Option {
	return func(cfg *Config) {
		if k > 0 {
			cfg.DefaultTopK = k
		}
	}
}

// WithEmbedTimeout bounds the query embedding call.
func WithEmbedTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.EmbedTimeout = d
		}
	}
}

// WithIndexBatchSize sets the embedding batch size used by Index.
func WithIndexBatchSize(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.IndexBatchSize = n
		}
	}
}

// Retriever searches exactly one collection per call, chosen by service.
// Collections are fixed at construction and never shared across services.
type Retriever struct {
	embedder    vector.Embedder
	collections map[service.ID]vector.VectorStore
	cfg         Config
	logger      *slog.Logger
}

// New creates a retriever over per-service collections.
func New(emb vector.Embedder, collections map[service.ID]vector.VectorStore, opts ...Option) *Retriever {
	cfg := Config{
		DefaultTopK:    DefaultTopK,
		EmbedTimeout:   15 * time.Second,
		IndexBatchSize: 32,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	bound := make(map[service.ID]vector.VectorStore, len(collections))
	for id, store := range collections {
		if store != nil {
			bound[id] = store
		}
	}
	return &Retriever{
		embedder:    emb,
		collections: bound,
		cfg:         cfg,
		logger:      logging.WithComponent("retriever"),
	}
}

// Services lists the configured services in canonical order.
func (r *Retriever) Services() []service.ID {
	var out []service.ID
	for _, id := range service.All() {
		if _, ok := r.collections[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Has reports whether svc has a collection.
func (r *Retriever) Has(svc service.ID) bool {
	_, ok := r.collections[svc]
	return ok
}

// Search returns at most k passages from svc's collection, highest score
// first. Every returned passage belongs to svc: hits whose stored service
// tag differs are dropped.
func (r *Retriever) Search(ctx context.Context, query string, svc service.ID, k int) ([]passage.Passage, error) {
	if svc == "" {
		return nil, errorskg.ErrServiceRequired
	}
	store, ok := r.collections[svc]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", errorskg.ErrServiceNotFound, svc, r.Services())
	}
	if k <= 0 {
		k = r.cfg.DefaultTopK
	}
	if r.embedder == nil {
		return nil, fmt.Errorf("retriever has no embedder")
	}

	embedCtx, cancel := context.WithTimeout(ctx, r.cfg.EmbedTimeout)
	raw, err := r.embedder.Embed(embedCtx, query)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := store.Search(ctx, vector.Normalized(raw), k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", svc, err)
	}

	out := make([]passage.Passage, 0, len(matches))
	for _, m := range matches {
		p := passage.FromMatch(m)
		if p.Service != svc {
			r.logger.Warn("dropping passage tagged with another service",
				"collection", svc.String(), "tagged", p.Service.String(), "section", p.Section)
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Index embeds passages and adds them to svc's collection. Vectors are
// L2-normalised before storage so inner product equals cosine similarity.
func (r *Retriever) Index(ctx context.Context, svc service.ID, passages []passage.Passage) error {
	store, ok := r.collections[svc]
	if !ok {
		return fmt.Errorf("%w: %q", errorskg.ErrServiceNotFound, svc)
	}
	if r.embedder == nil {
		return fmt.Errorf("retriever has no embedder")
	}

	batch := r.cfg.IndexBatchSize
	for start := 0; start < len(passages); start += batch {
		end := min(start+batch, len(passages))
		texts := make([]string, 0, end-start)
		for _, p := range passages[start:end] {
			texts = append(texts, p.Text)
		}
		vectors, err := r.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed passages %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
		}
		for i, vec := range vectors {
			p := passages[start+i]
			emb := &vector.Embedding{
				ID:     fmt.Sprintf("%s-%d", svc, start+i),
				Vector: vector.Normalized(vec),
				Text:   p.Text,
				Metadata: map[string]string{
					vector.MetaService: svc.String(),
					vector.MetaRegion:  p.Region,
					vector.MetaSection: p.Section,
				},
			}
			if err := store.AddEmbedding(ctx, emb); err != nil {
				return fmt.Errorf("store passage %s: %w", emb.ID, err)
			}
		}
	}
	r.logger.Info("indexed passages", "service", svc.String(), "count", len(passages))
	return nil
}
