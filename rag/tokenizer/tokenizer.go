package tokenizer

import (
	"strings"
	"sync"
	"unicode"
)

type Tokenizer interface {
	Encode(text string) []int
	CountTokens(text string) int
	DecodeIds(ids []int) string
}

// Truncate keeps at most maxTokens tokens of text. A non-positive budget
// leaves text unchanged.
func Truncate(t Tokenizer, text string, maxTokens int) string {
	if t == nil || maxTokens <= 0 {
		return text
	}
	ids := t.Encode(text)
	if len(ids) <= maxTokens {
		return text
	}
	return strings.TrimSpace(t.DecodeIds(ids[:maxTokens]))
}

var _ Tokenizer = (*SimpleTokenizer)(nil)

// SimpleTokenizer is a vocabulary-building word tokenizer. It needs no model
// files and is used when no BPE encoding is configured.
type SimpleTokenizer struct {
	mu       sync.Mutex
	vocab    map[string]int // token → id
	invVocab map[int]string // id → token
	nextID   int
}

// NewSimpleTokenizer creates new tokenizer with empty vocab.
func NewSimpleTokenizer() *SimpleTokenizer {
	return &SimpleTokenizer{
		vocab:    make(map[string]int),
		invVocab: make(map[int]string),
		nextID:   1, // reserve 0 for padding if needed
	}
}

// addToken registers token to vocab if not exists
func (t *SimpleTokenizer) addToken(tok string) int {
	if id, ok := t.vocab[tok]; ok {
		return id
	}
	id := t.nextID
	t.vocab[tok] = id
	t.invVocab[id] = tok
	t.nextID++
	return id
}

// Tokenization rules:
// - letters and digits, with their combining marks, form one word
//   (Malayalam vowel signs and virama are marks, not letters)
// - punctuation is a standalone token
// - whitespace separates tokens
func splitTokens(s string) []string {
	var toks []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			toks = append(toks, buf.String())
			buf.Reset()
		}
	}

	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r):
			buf.WriteRune(r)
		case r == '\u200c' || r == '\u200d':
			// zero-width (non-)joiners appear inside Malayalam chillu forms
			buf.WriteRune(r)
		default:
			flush()
			toks = append(toks, string(r))
		}
	}

	flush()
	return toks
}

func (t *SimpleTokenizer) Encode(text string) []int {
	toks := splitTokens(text)
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]int, 0, len(toks))
	for _, tok := range toks {
		ids = append(ids, t.addToken(tok))
	}
	return ids
}

func (t *SimpleTokenizer) CountTokens(text string) int {
	return len(splitTokens(text))
}

// DecodeIds joins word tokens with single spaces; punctuation attaches to
// the preceding word.
func (t *SimpleTokenizer) DecodeIds(ids []int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var sb strings.Builder
	for _, id := range ids {
		tok, ok := t.invVocab[id]
		if !ok {
			continue
		}
		first := []rune(tok)[0]
		if sb.Len() > 0 && (unicode.IsLetter(first) || unicode.IsDigit(first)) {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok)
	}
	return sb.String()
}
