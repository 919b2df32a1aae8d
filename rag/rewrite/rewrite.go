// Package rewrite turns a conversational follow-up into a standalone question.
package rewrite

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
)

// MaxTokens bounds the rewritten question.
const MaxTokens = 128

var errEmptyRewrite = errors.New("empty rewrite")

// Result is the standalone query, or the input with Degraded set.
type Result struct {
	Text     string
	Degraded bool
	Err      error
}

// Rewriter resolves references in a follow-up using recent history.
type Rewriter struct {
	gen     provider.Generator
	prompts *prompt.Manager
	window  int
	logger  *slog.Logger
}

// New creates a rewriter reading at most message.HistoryWindow turns.
func New(gen provider.Generator, prompts *prompt.Manager) *Rewriter {
	if prompts == nil {
		prompts = prompt.Defaults()
	}
	return &Rewriter{
		gen:     gen,
		prompts: prompts,
		window:  message.HistoryWindow,
		logger:  logging.WithComponent("rewriter"),
	}
}

// Rewrite returns query unchanged, without a provider call, when history is
// empty. Failures return the query unchanged and marked degraded.
func (r *Rewriter) Rewrite(ctx context.Context, query string, history []message.Message) Result {
	recent := message.Format(message.Window(history, r.window))
	if recent == "" {
		return Result{Text: query}
	}

	out, err := r.rewrite(ctx, query, recent)
	if err != nil {
		r.logger.Warn("rewrite failed, using original query",
			"query", logging.Truncate(query, 80), "error", err)
		return Result{Text: query, Degraded: true, Err: err}
	}
	r.logger.Debug("query rewritten", "query", logging.Truncate(query, 80), "standalone", logging.Truncate(out, 120))
	return Result{Text: out}
}

func (r *Rewriter) rewrite(ctx context.Context, query, recent string) (string, error) {
	if r.gen == nil {
		return "", fmt.Errorf("rewriter has no generator")
	}
	body, err := r.prompts.Render(prompt.Rewrite, map[string]any{
		"History": recent,
		"Query":   query,
	})
	if err != nil {
		return "", err
	}
	out, err := r.gen.Generate(ctx, provider.Request{
		System:    prompt.HelperSystem,
		Prompt:    body,
		MaxTokens: MaxTokens,
	})
	if err != nil {
		return "", err
	}
	out = strings.Trim(strings.TrimSpace(out), `"`)
	if out == "" {
		return "", errEmptyRewrite
	}
	return out, nil
}
