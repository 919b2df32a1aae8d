package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceRequired indicates a retrieval was attempted without a service scope
	ErrServiceRequired = errors.New("service must be specified for retrieval")

	// ErrServiceNotFound indicates the requested service has no configured collection
	ErrServiceNotFound = errors.New("service not found")

	// ErrNoModels indicates a generation chain was built without any model
	ErrNoModels = errors.New("no generation models configured")

	// ErrProviderTimeout indicates a single generation attempt exceeded its deadline
	ErrProviderTimeout = errors.New("provider timeout")

	// ErrModelsExhausted indicates every configured model failed with a retryable outcome
	ErrModelsExhausted = errors.New("all models failed")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
