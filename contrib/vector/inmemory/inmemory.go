package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sweetpotato0/govassist/vector"
)

// Store is a flat inner-product index. Embeddings keep insertion order so
// equal scores rank by position, and replacing an ID keeps its slot.
type Store struct {
	mu         sync.RWMutex
	dimension  int
	embeddings []*vector.Embedding
	positions  map[string]int
}

var _ vector.VectorStore = (*Store)(nil)

// New creates an empty store. A zero dimension is fixed by the first embedding.
func New(dimension int) *Store {
	return &Store{
		dimension: dimension,
		positions: make(map[string]int),
	}
}

// Dimension returns the vector size accepted by the store.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// AddEmbedding adds a new embedding to the store
func (s *Store) AddEmbedding(ctx context.Context, embedding *vector.Embedding) error {
	if embedding == nil {
		return fmt.Errorf("embedding cannot be nil")
	}
	if embedding.ID == "" {
		return fmt.Errorf("embedding ID cannot be empty")
	}
	if len(embedding.Vector) == 0 {
		return fmt.Errorf("embedding vector cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension == 0 {
		s.dimension = len(embedding.Vector)
	}
	if len(embedding.Vector) != s.dimension {
		return fmt.Errorf("embedding dimension mismatch: expected %d, got %d", s.dimension, len(embedding.Vector))
	}

	if pos, ok := s.positions[embedding.ID]; ok {
		s.embeddings[pos] = embedding
		return nil
	}
	s.positions[embedding.ID] = len(s.embeddings)
	s.embeddings = append(s.embeddings, embedding)
	return nil
}

// Search ranks every stored embedding by inner product with queryVector.
func (s *Store) Search(ctx context.Context, queryVector []float32, topK int) ([]vector.Match, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dimension != 0 && len(queryVector) != s.dimension {
		return nil, fmt.Errorf("query vector dimension mismatch: expected %d, got %d", s.dimension, len(queryVector))
	}
	if topK <= 0 {
		topK = 10
	}

	results := make([]vector.Match, 0, len(s.embeddings))
	for _, emb := range s.embeddings {
		results = append(results, vector.Match{
			Embedding: emb,
			Score:     vector.Dot(queryVector, emb.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Count returns the number of embeddings
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.embeddings), nil
}

// Embeddings returns the stored embeddings in index order.
func (s *Store) Embeddings() []*vector.Embedding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*vector.Embedding(nil), s.embeddings...)
}
