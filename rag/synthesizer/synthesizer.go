// Package synthesizer composes grounded answers from retrieved passages.
package synthesizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/govassist/message"
	"github.com/sweetpotato0/govassist/pkg/logging"
	"github.com/sweetpotato0/govassist/prompt"
	"github.com/sweetpotato0/govassist/provider"
	"github.com/sweetpotato0/govassist/rag/passage"
	"github.com/sweetpotato0/govassist/rag/tokenizer"
)

// NoInformation is returned without calling any model when retrieval found nothing.
const NoInformation = "I couldn't find any relevant information for your question. Please try rephrasing or ask about a different government service."

var errEmptyAnswer = errors.New("empty answer")

// Answer is the synthesized text. Degraded is set when Text is the
// deterministic passage fallback rather than model output.
type Answer struct {
	Text     string
	Degraded bool
	Err      error
}

// Synthesizer drives a generator (normally a provider.Chain) with the
// grounding prompt.
type Synthesizer struct {
	gen           provider.Generator
	prompts       *prompt.Manager
	tok           tokenizer.Tokenizer
	passageTokens int
	window        int
	logger        *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithPassageBudget trims each passage to maxTokens tokens inside the prompt.
// Returned sources are never trimmed.
func WithPassageBudget(tok tokenizer.Tokenizer, maxTokens int) Option {
	return func(s *Synthesizer) {
		s.tok = tok
		s.passageTokens = maxTokens
	}
}

// WithPrompts replaces the default template set.
func WithPrompts(m *prompt.Manager) Option {
	return func(s *Synthesizer) {
		if m != nil {
			s.prompts = m
		}
	}
}

// New creates a synthesizer.
func New(gen provider.Generator, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		gen:     gen,
		prompts: prompt.Defaults(),
		window:  message.HistoryWindow,
		logger:  logging.WithComponent("synthesizer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize answers query from passages. History only helps the model
// read the question; it is never treated as a source. Any generation
// failure yields Fallback(passages) with Degraded set.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, passages []passage.Passage, history []message.Message) Answer {
	if len(passages) == 0 {
		return Answer{Text: NoInformation}
	}

	text, err := s.generate(ctx, query, passages, history)
	if err != nil {
		s.logger.Warn("answer synthesis failed, returning top passage",
			"query", logging.Truncate(query, 80), "error", err)
		return Answer{Text: Fallback(passages), Degraded: true, Err: err}
	}
	return Answer{Text: text}
}

func (s *Synthesizer) generate(ctx context.Context, query string, passages []passage.Passage, history []message.Message) (string, error) {
	if s.gen == nil {
		return "", fmt.Errorf("synthesizer has no generator")
	}
	body, err := s.prompts.Render(prompt.SynthesisUser, map[string]any{
		"Context":  BuildContext(passages, s.tok, s.passageTokens),
		"History":  message.Format(message.Window(history, s.window)),
		"Question": query,
	})
	if err != nil {
		return "", err
	}
	out, err := s.gen.Generate(ctx, provider.Request{
		System: prompt.SynthesisSystem,
		Prompt: body,
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errEmptyAnswer
	}
	return out, nil
}

// BuildContext numbers passages from 1 in the form
// "[Chunk i] Service: s | Section: x" followed by the passage text.
func BuildContext(passages []passage.Passage, tok tokenizer.Tokenizer, maxTokens int) string {
	b := prompt.NewBuilder()
	for i, p := range passages {
		if i > 0 {
			b.Add("\n\n")
		}
		b.AddFormat("[Chunk %d] Service: %s | Section: %s\n%s",
			i+1, p.Service, p.Section, tokenizer.Truncate(tok, p.Text, maxTokens))
	}
	return b.Build()
}

// Fallback renders the top passage as "**<section>**\n<text>". It depends on
// nothing but that passage, so identical inputs give identical output.
func Fallback(passages []passage.Passage) string {
	if len(passages) == 0 {
		return NoInformation
	}
	top := passages[0]
	return fmt.Sprintf("**%s**\n%s", top.Section, top.Text)
}
