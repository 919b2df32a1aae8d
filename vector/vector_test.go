package vector

import (
	"math"
	"testing"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1.0, 0.0, 0.0}
	b := []float32{2.0, 0.0, 0.0}
	c := []float32{0.0, 1.0, 0.0}

	if sim := CosineSimilarity(a, b); !approx(sim, 1) {
		t.Errorf("Expected similarity 1.0 for parallel vectors, got %f", sim)
	}
	if sim := CosineSimilarity(a, c); sim != 0 {
		t.Errorf("Expected similarity 0.0 for orthogonal vectors, got %f", sim)
	}
	if sim := CosineSimilarity(a, []float32{1}); sim != 0 {
		t.Errorf("Expected 0 on dimension mismatch, got %f", sim)
	}
}

func TestDotEqualsCosineOnNormalizedVectors(t *testing.T) {
	a := Normalized([]float32{3, 4, 0})
	b := Normalized([]float32{1, 2, 2})

	if !approx(Dot(a, b), CosineSimilarity(a, b)) {
		t.Fatalf("dot %f != cosine %f", Dot(a, b), CosineSimilarity(a, b))
	}
}

func TestNormalized(t *testing.T) {
	in := []float32{3, 4}
	out := Normalized(in)

	if in[0] != 3 || in[1] != 4 {
		t.Fatalf("Normalized must not modify its input, got %v", in)
	}
	if !approx(out[0], 0.6) || !approx(out[1], 0.8) {
		t.Fatalf("unexpected normalised vector %v", out)
	}

	zero := Normalized([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Fatalf("zero vector must stay zero, got %v", zero)
	}
}
