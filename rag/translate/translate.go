// Package translate converts queries and answers between Malayalam and English.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/govassist/pkg/logging"
	"github.com/sweetpotato0/govassist/prompt"
	"github.com/sweetpotato0/govassist/provider"
)

// Direction selects the translation instruction.
type Direction int

const (
	ToEnglish Direction = iota
	FromEnglish
)

func (d Direction) String() string {
	if d == FromEnglish {
		return "en->ml"
	}
	return "ml->en"
}

// Output token limits per direction.
const (
	ToEnglishMaxTokens   = 256
	FromEnglishMaxTokens = 512
)

var errEmptyTranslation = errors.New("empty translation")

// Result is the translated text, or the input with Degraded set when the
// provider could not translate it.
type Result struct {
	Text     string
	Degraded bool
	Err      error
}

// Translator wraps a generator with translation prompts.
type Translator struct {
	gen     provider.Generator
	prompts *prompt.Manager
	logger  *slog.Logger
}

// New creates a translator. A nil prompt manager uses prompt.Defaults.
func New(gen provider.Generator, prompts *prompt.Manager) *Translator {
	if prompts == nil {
		prompts = prompt.Defaults()
	}
	return &Translator{
		gen:     gen,
		prompts: prompts,
		logger:  logging.WithComponent("translator"),
	}
}

// Translate never fails: on any error the original text comes back marked degraded.
func (t *Translator) Translate(ctx context.Context, text string, dir Direction) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Text: text}
	}

	out, err := t.translate(ctx, text, dir)
	if err != nil {
		t.logger.Warn("translation failed, using original text",
			"direction", dir.String(), "text", logging.Truncate(text, 80), "error", err)
		return Result{Text: text, Degraded: true, Err: err}
	}
	return Result{Text: out}
}

func (t *Translator) translate(ctx context.Context, text string, dir Direction) (string, error) {
	if t.gen == nil {
		return "", fmt.Errorf("translator has no generator")
	}

	name, maxTokens := prompt.TranslateToEnglish, int64(ToEnglishMaxTokens)
	if dir == FromEnglish {
		name, maxTokens = prompt.TranslateFromEnglish, int64(FromEnglishMaxTokens)
	}
	body, err := t.prompts.Render(name, map[string]any{"Text": text})
	if err != nil {
		return "", err
	}

	out, err := t.gen.Generate(ctx, provider.Request{
		System:    prompt.HelperSystem,
		Prompt:    body,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errEmptyTranslation
	}
	return out, nil
}
