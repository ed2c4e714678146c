package curriculum

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds. Every orchestration failure wraps exactly one of these.
var (
	ErrPlanGenerationFailed  = errors.New("plan generation failed")
	ErrMaterializationFailed = errors.New("materialization failed")
	ErrEnrichmentFailed      = errors.New("enrichment failed")
	ErrEvaluationFailed      = errors.New("evaluation failed")
	ErrTestGenerationFailed  = errors.New("chapter test generation failed")
	ErrPersistenceFailed     = errors.New("persistence failed")
)

// Lookup and state errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")
)

// OpError attaches a kind and the affected key to an underlying error.
type OpError struct {
	Kind error
	Key  string
	Err  error
}

// Fail builds an *OpError.
func Fail(kind error, key string, err error) *OpError {
	return &OpError{Kind: kind, Key: key, Err: err}
}

func (e *OpError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%v [%s]: %v", e.Kind, e.Key, e.Err)
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsRetryable reports whether the caller may offer a retry. Malformed
// collaborator output is retryable the same way a network failure is.
// Cancellation and missing entities are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidState) || errors.Is(err, ErrInvalidInput) {
		return false
	}
	for _, kind := range []error{
		ErrPlanGenerationFailed,
		ErrMaterializationFailed,
		ErrEnrichmentFailed,
		ErrEvaluationFailed,
		ErrTestGenerationFailed,
		ErrPersistenceFailed,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
