package provider

import (
	"context"
	"errors"
	"net"
	"net/http"

	errorskg "github.com/sweetpotato0/govassist/errors"
)

// Outcome classifies the result of one generation attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTimeout
	OutcomeUnavailable
	OutcomeFailure
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeFailure:
		return "failure"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Action is what the chain does after an attempt.
type Action int

const (
	ActionReturn Action = iota
	ActionNext
	ActionWaitNext
	ActionAbort
)

// Policy maps attempt outcomes to chain actions. Outcomes missing from the
// table abort the chain.
type Policy map[Outcome]Action

// SynthesisPolicy is used for answer generation: rate limits and outages move
// on to the next model after a pause, timeouts move on immediately, anything
// else stops the chain so the caller can fall back.
var SynthesisPolicy = Policy{
	OutcomeSuccess:     ActionReturn,
	OutcomeTimeout:     ActionNext,
	OutcomeUnavailable: ActionWaitNext,
	OutcomeFailure:     ActionAbort,
	OutcomeCanceled:    ActionAbort,
}

// LenientPolicy keeps trying later models on any failure. Used for the
// translation and rewrite helpers, which degrade to their input anyway.
var LenientPolicy = Policy{
	OutcomeSuccess:     ActionReturn,
	OutcomeTimeout:     ActionNext,
	OutcomeUnavailable: ActionWaitNext,
	OutcomeFailure:     ActionNext,
	OutcomeCanceled:    ActionAbort,
}

// Action returns the action configured for outcome.
func (p Policy) Action(o Outcome) Action {
	if a, ok := p[o]; ok {
		return a
	}
	return ActionAbort
}

// unavailableStatus lists the statuses that mean "this model cannot serve
// right now" rather than "the request is wrong".
var unavailableStatus = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusPaymentRequired:    true,
	http.StatusNotFound:           true,
	http.StatusServiceUnavailable: true,
}

// Classify maps an attempt error to an Outcome. parent is the caller's context
// (not the per-attempt one) so that a caller cancellation is told apart from
// an attempt deadline.
func Classify(parent context.Context, err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if parent.Err() != nil {
		return OutcomeCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errorskg.ErrProviderTimeout) {
		return OutcomeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return OutcomeTimeout
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if unavailableStatus[statusErr.StatusCode] {
			return OutcomeUnavailable
		}
	}
	return OutcomeFailure
}
