package common

import (
	"errors"
)

// ErrRateLimit indicates that the API rate limit has been exceeded.
var ErrRateLimit = errors.New("rate limit exceeded")

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}
