// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Pipeline errors.
	ErrChunking            = errors.New("chunking invariant violated")
	ErrExtractionFormat    = errors.New("extraction response is not a JSON array")
	ErrExtractionTransport = errors.New("extraction request failed")
	ErrPipelineFatal       = errors.New("extraction failed")

	// Database errors.
	ErrNotFound = errors.New("not found")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// SegmentExhaustedError reports a segment whose retries all failed.
type SegmentExhaustedError struct {
	Err          error
	SegmentIndex int
	Attempts     int
}

func (e *SegmentExhaustedError) Error() string {
	return fmt.Sprintf("segment %d failed after %d attempts: %v", e.SegmentIndex, e.Attempts, e.Err)
}

func (e *SegmentExhaustedError) Unwrap() error {
	return e.Err
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrChunking) {
		return false
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return true
}
