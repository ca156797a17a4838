// Package apperr defines the error taxonomy shared across service layers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

// RemoteError is returned when a call to the LLM backend fails at the
// transport or API level (network error, timeout, non-success status,
// empty completion). It is distinct from a reply that arrives but cannot
// be parsed — those are absorbed by the pipeline's fallback payloads.
type RemoteError struct {
	Op         string // operation that was attempted, e.g. "classify"
	StatusCode int    // HTTP status from the backend, 0 if none
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm %s: backend returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsRemote reports whether err is (or wraps) a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
