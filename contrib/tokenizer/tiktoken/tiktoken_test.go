package tiktoken

import (
	"testing"

	"github.com/sweetpotato0/govassist/rag/tokenizer"
)

func TestCountMatchesEncode(t *testing.T) {
	tok, err := New(DefaultEncoding)
	if err != nil {
		t.Skipf("encoding unavailable (needs BPE download): %v", err)
	}
	text := "Documents required for a new ration card"
	if got, want := tok.CountTokens(text), len(tok.Encode(text)); got != want {
		t.Fatalf("CountTokens = %d, want %d", got, want)
	}
	truncated := tokenizer.Truncate(tok, text, 2)
	if tok.CountTokens(truncated) > 2 {
		t.Fatalf("truncated text %q exceeds budget", truncated)
	}
}
