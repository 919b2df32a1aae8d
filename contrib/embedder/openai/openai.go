package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sweetpotato0/govassist/vector"
)

// Config configures the embedding client.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
}

// Embedder implements vector.Embedder over an OpenAI-compatible embeddings endpoint.
type Embedder struct {
	client    openaisdk.Client
	model     openaisdk.EmbeddingModel
	dimension int
}

var _ vector.Embedder = (*Embedder)(nil)

// New create Embedder.
func New(cfg Config) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, errors.New("embedding model is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", cfg.Dimension)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Embedder{
		client:    openaisdk.NewClient(opts...),
		model:     openaisdk.EmbeddingModel(cfg.Model),
		dimension: cfg.Dimension,
	}, nil
}

// Dimension return number of embedding dimensions
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Embed converts text to a vector embedding
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return vectors[0], nil
}

// EmbedBatch converts multiple texts to embeddings
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model: e.model,
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	for _, emb := range resp.Data {
		if len(emb.Embedding) != e.dimension {
			return nil, fmt.Errorf("embedding dimension %d does not match configured %d", len(emb.Embedding), e.dimension)
		}
		idx := int(emb.Index)
		if idx < 0 || idx >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", idx)
		}
		if out[idx] != nil {
			return nil, fmt.Errorf("duplicate embedding index %d", idx)
		}
		vec := make([]float32, len(emb.Embedding))
		for i, v := range emb.Embedding {
			vec[i] = float32(v)
		}
		out[idx] = vec
	}
	return out, nil
}
