package vector

import (
	"context"
	"math"
)

// Metadata keys stored alongside every indexed passage.
const (
	MetaService = "service"
	MetaRegion  = "region"
	MetaSection = "section"
)

// Embedding represents a stored vector and the passage it was computed from
type Embedding struct {
	ID       string            `json:"id"`
	Vector   []float32         `json:"embedding"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Match is a search hit with its similarity score (higher is closer).
type Match struct {
	Embedding *Embedding
	Score     float32
}

// VectorStore defines the interface for vector storage and similarity search
type VectorStore interface {
	// AddEmbedding adds a new embedding to the store
	AddEmbedding(ctx context.Context, embedding *Embedding) error

	// Search returns up to topK embeddings ranked by inner product with the
	// query vector, highest first
	Search(ctx context.Context, queryVector []float32, topK int) ([]Match, error)

	// Count returns the number of embeddings
	Count(ctx context.Context) (int, error)
}

// Embedder defines the interface for creating embeddings from text
type Embedder interface {
	// Embed converts text to a vector embedding
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts multiple texts to embeddings
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension return number of embedding dimensions
	Dimension() int
}

// Dot returns the inner product of two equally sized vectors, or 0 on a size mismatch.
// On L2-normalised inputs this equals cosine similarity and is the ranking metric
// used everywhere in this module.
func Dot(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// CosineSimilarity calculates the cosine similarity between two vectors
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Normalize scales the vector to unit length (L2 norm) in place.
func Normalize(vec []float32) []float32 {
	if len(vec) == 0 {
		return vec
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

// Normalized returns a unit-length copy of vec, leaving the input untouched.
func Normalized(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return Normalize(out)
}
