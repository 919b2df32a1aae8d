package provider

import (
	"context"
	"fmt"
	"net/http"
)

// Request is a single text generation call.
type Request struct {
	System      string
	Prompt      string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// Generator produces text for a request. Implementations honour ctx for
// cancellation and deadlines and report HTTP failures as *StatusError.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// StatusError carries the HTTP status returned by a model endpoint.
type StatusError struct {
	StatusCode int
	Model      string
	Err        error
}

func (e *StatusError) Error() string {
	text := http.StatusText(e.StatusCode)
	if e.Err != nil {
		return fmt.Sprintf("model %s: status %d %s: %v", e.Model, e.StatusCode, text, e.Err)
	}
	return fmt.Sprintf("model %s: status %d %s", e.Model, e.StatusCode, text)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}
