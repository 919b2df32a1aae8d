package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	errorskg "github.com/sweetpotato0/govassist/errors"
	"github.com/sweetpotato0/govassist/pkg/logging"
)

const (
	// DefaultAttemptTimeout bounds a single model attempt.
	DefaultAttemptTimeout = 60 * time.Second
	// DefaultWait is the pause before moving on after a rate limit or outage.
	DefaultWait = 500 * time.Millisecond
)

// Observer is notified after every attempt.
type Observer func(model string, outcome Outcome, elapsed time.Duration)

// Chain tries an ordered list of models against one Generator, one attempt
// per model, and decides what to do after each attempt from its Policy.
// A Chain is itself a Generator; the Model field of incoming requests is
// ignored.
type Chain struct {
	generator  Generator
	models     []string
	timeout    time.Duration
	policy     Policy
	newBackOff func() backoff.BackOff
	observer   Observer
	logger     *slog.Logger
}

// Option configures a Chain.
type Option func(*Chain)

// WithAttemptTimeout sets the per-attempt deadline.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Chain) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPolicy replaces the outcome table.
func WithPolicy(p Policy) Option {
	return func(c *Chain) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithBackOff sets the factory for the wait policy used between models.
// A fresh BackOff is created for every Generate call.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(c *Chain) {
		if factory != nil {
			c.newBackOff = factory
		}
	}
}

// WithObserver registers an attempt observer (metrics).
func WithObserver(o Observer) Option {
	return func(c *Chain) {
		c.observer = o
	}
}

// WithLogger overrides the chain logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

// ConstantBackOff returns a factory for a fixed wait.
func ConstantBackOff(d time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		return backoff.NewConstantBackOff(d)
	}
}

// ExponentialBackOff returns a factory for a jittered exponential wait
// starting at initial and capped at maxInterval.
func ExponentialBackOff(initial, maxInterval time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = maxInterval
		return b
	}
}

// NewChain builds a chain over models, tried in order.
func NewChain(gen Generator, models []string, opts ...Option) (*Chain, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator cannot be nil")
	}
	if len(models) == 0 {
		return nil, errorskg.ErrNoModels
	}
	c := &Chain{
		generator:  gen,
		models:     append([]string(nil), models...),
		timeout:    DefaultAttemptTimeout,
		policy:     SynthesisPolicy,
		newBackOff: ConstantBackOff(DefaultWait),
		logger:     logging.WithComponent("provider_chain"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Models returns the ordered model list.
func (c *Chain) Models() []string {
	return append([]string(nil), c.models...)
}

// Generate runs the fallback loop. It returns the first successful output,
// the error of an aborting attempt, or ErrModelsExhausted wrapping the last
// retryable error.
func (c *Chain) Generate(ctx context.Context, req Request) (string, error) {
	wait := c.newBackOff()
	wait.Reset()

	var lastErr error
	for i, model := range c.models {
		attempt := req
		attempt.Model = model

		start := time.Now()
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		text, err := c.generator.Generate(attemptCtx, attempt)
		cancel()
		elapsed := time.Since(start)

		outcome := Classify(ctx, err)
		if c.observer != nil {
			c.observer(model, outcome, elapsed)
		}

		switch c.policy.Action(outcome) {
		case ActionReturn:
			c.logger.Debug("model attempt succeeded", "model", model, "elapsed", elapsed)
			return text, nil
		case ActionAbort:
			c.logger.Warn("model attempt aborted chain", "model", model, "outcome", outcome.String(), "error", err)
			if outcome == OutcomeCanceled {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("model %s: %w", model, err)
		case ActionNext:
			c.logger.Info("model attempt failed, trying next", "model", model, "outcome", outcome.String(), "error", err)
			lastErr = attemptError(model, outcome, err)
		case ActionWaitNext:
			c.logger.Info("model unavailable, trying next", "model", model, "outcome", outcome.String(), "error", err)
			lastErr = attemptError(model, outcome, err)
			if i < len(c.models)-1 {
				if err := sleep(ctx, wait.NextBackOff()); err != nil {
					return "", err
				}
			}
		}
	}
	return "", fmt.Errorf("%w: %w", errorskg.ErrModelsExhausted, lastErr)
}

func attemptError(model string, outcome Outcome, err error) error {
	if outcome == OutcomeTimeout {
		return fmt.Errorf("model %s: %w: %w", model, errorskg.ErrProviderTimeout, err)
	}
	return fmt.Errorf("model %s: %w", model, err)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
