package router

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sweetpotato0/govassist/service"
)

type keywordEmbedder struct {
	failQueries bool
}

var keywordSpace = []string{"ration card", "birth", "unemployment", "document"}

func (k *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if k.failQueries {
		return nil, errors.New("embedding backend down")
	}
	return k.embed(text), nil
}

func (k *keywordEmbedder) embed(text string) []float32 {
	vec := make([]float32, len(keywordSpace))
	lower := strings.ToLower(text)
	for idx, kw := range keywordSpace {
		if strings.Contains(lower, kw) {
			vec[idx] = 1
		}
	}
	return vec
}

func (k *keywordEmbedder) Dimension() int {
	return len(keywordSpace)
}

func (k *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = k.embed(text)
	}
	return out, nil
}

func TestRoute(t *testing.T) {
	ctx := context.Background()
	r, err := New(ctx, &keywordEmbedder{}, service.Descriptions)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	cases := []struct {
		name   string
		query  string
		choice service.ID
		want   service.ID
	}{
		{"similarity", "What documents do I need for a ration card?", "", service.RationCard},
		{"similarity birth", "register a birth late", "", service.BirthCertificate},
		{"explicit choice wins", "What documents do I need for a ration card?", service.BirthCertificate, service.BirthCertificate},
		{"invalid choice ignored", "unemployment allowance eligibility", "driving_licence", service.UnemploymentAllowance},
		{"tie goes to first service", "hello", "", service.RationCard},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := r.Route(ctx, tc.query, tc.choice)
			if !ok || got != tc.want {
				t.Fatalf("Route(%q, %q) = %q, %v; want %q", tc.query, tc.choice, got, ok, tc.want)
			}
		})
	}
}

func TestRouteUnresolvedWhenEmbeddingFails(t *testing.T) {
	ctx := context.Background()
	r, err := New(ctx, &keywordEmbedder{failQueries: true}, service.Descriptions)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got, ok := r.Route(ctx, "ration card fees", ""); ok || got != "" {
		t.Fatalf("expected unresolved, got %q", got)
	}
	if got, ok := r.Route(ctx, "ration card fees", service.RationCard); !ok || got != service.RationCard {
		t.Fatalf("explicit choice must still win, got %q", got)
	}
}

func TestRouteWithoutEmbedder(t *testing.T) {
	r, err := New(context.Background(), nil, service.Descriptions)
	if err == nil {
		t.Fatal("expected construction error")
	}
	if _, ok := r.Route(context.Background(), "ration card", ""); ok {
		t.Fatal("router without embedder must not infer a service")
	}
}
