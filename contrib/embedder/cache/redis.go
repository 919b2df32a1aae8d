package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sweetpotato0/govassist/pkg/logging"
	"github.com/sweetpotato0/govassist/vector"
)

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string        // Redis server address (e.g., "localhost:6379")
	Password string        // Redis password (if any)
	DB       int           // Redis database number
	Prefix   string        // Key prefix for namespacing
	TTL      time.Duration // Time-to-live for keys (0 means no expiration)
}

// Embedder wraps another embedder and memoises query embeddings in Redis.
// Cache failures are logged and bypassed; they never fail an embedding.
type Embedder struct {
	inner  vector.Embedder
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

var _ vector.Embedder = (*Embedder)(nil)

// New connects to Redis and wraps inner.
func New(inner vector.Embedder, cfg *RedisConfig) *Embedder {
	if cfg == nil {
		cfg = &RedisConfig{Addr: "localhost:6379"}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewWithClient(inner, client, cfg.Prefix, cfg.TTL)
}

// NewWithClient wraps inner using an existing Redis client.
func NewWithClient(inner vector.Embedder, client redis.UniversalClient, prefix string, ttl time.Duration) *Embedder {
	if prefix == "" {
		prefix = "govassist:embedding:"
	}
	return &Embedder{
		inner:  inner,
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logging.WithComponent("embedding_cache"),
	}
}

// Close releases the Redis client.
func (e *Embedder) Close() error {
	return e.client.Close()
}

// Dimension return number of embedding dimensions
func (e *Embedder) Dimension() int {
	return e.inner.Dimension()
}

// Embed returns the cached vector for text or computes and stores it.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.key(text)
	if vec, ok := e.lookup(ctx, key); ok {
		return vec, nil
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.store(ctx, key, vec)
	return vec, nil
}

// EmbedBatch embeds only the texts missing from the cache.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if vec, ok := e.lookup(ctx, e.key(text)); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := e.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(missing), len(vectors))
	}
	for j, vec := range vectors {
		out[missingIdx[j]] = vec
		e.store(ctx, e.key(missing[j]), vec)
	}
	return out, nil
}

func (e *Embedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return e.prefix + hex.EncodeToString(sum[:])
}

func (e *Embedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := e.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			e.logger.Warn("embedding cache read failed", "error", err)
		}
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil || len(vec) != e.inner.Dimension() {
		e.logger.Warn("discarding corrupt cache entry", "key", key)
		return nil, false
	}
	return vec, true
}

func (e *Embedder) store(ctx context.Context, key string, vec []float32) {
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := e.client.Set(ctx, key, data, e.ttl).Err(); err != nil {
		e.logger.Warn("embedding cache write failed", "error", err)
	}
}
