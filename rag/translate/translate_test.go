package translate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sweetpotato0/govassist/provider"
)

type stubGenerator struct {
	reply string
	err   error
	last  provider.Request
	calls int
}

func (s *stubGenerator) Generate(ctx context.Context, req provider.Request) (string, error) {
	s.calls++
	s.last = req
	return s.reply, s.err
}

func TestTranslateToEnglish(t *testing.T) {
	gen := &stubGenerator{reply: " What documents are needed for a ration card? "}
	res := New(gen, nil).Translate(context.Background(), "റേഷൻ കാർഡിന് എന്ത് രേഖകൾ വേണം?", ToEnglish)

	if res.Degraded || res.Err != nil {
		t.Fatalf("unexpected degraded result %+v", res)
	}
	if res.Text != "What documents are needed for a ration card?" {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if gen.last.MaxTokens != ToEnglishMaxTokens {
		t.Errorf("expected max tokens %d, got %d", ToEnglishMaxTokens, gen.last.MaxTokens)
	}
	if !strings.Contains(gen.last.Prompt, "Malayalam text to English") {
		t.Errorf("unexpected prompt %q", gen.last.Prompt)
	}
}

func TestTranslateFromEnglishUsesLargerBudget(t *testing.T) {
	gen := &stubGenerator{reply: "ഉത്തരം"}
	res := New(gen, nil).Translate(context.Background(), "answer", FromEnglish)
	if res.Text != "ഉത്തരം" {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if gen.last.MaxTokens != FromEnglishMaxTokens {
		t.Errorf("expected max tokens %d, got %d", FromEnglishMaxTokens, gen.last.MaxTokens)
	}
}

func TestTranslateDegrades(t *testing.T) {
	cases := []struct {
		name string
		gen  provider.Generator
	}{
		{"provider error", &stubGenerator{err: errors.New("boom")}},
		{"blank output", &stubGenerator{reply: "   "}},
		{"no generator", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := New(tc.gen, nil).Translate(context.Background(), "source", ToEnglish)
			if !res.Degraded || res.Err == nil {
				t.Fatalf("expected degraded result, got %+v", res)
			}
			if res.Text != "source" {
				t.Fatalf("expected original text, got %q", res.Text)
			}
		})
	}
}

func TestTranslateSkipsBlankInput(t *testing.T) {
	gen := &stubGenerator{reply: "x"}
	res := New(gen, nil).Translate(context.Background(), "  ", ToEnglish)
	if gen.calls != 0 || res.Degraded {
		t.Fatalf("blank input must not reach the provider: %+v", res)
	}
}
