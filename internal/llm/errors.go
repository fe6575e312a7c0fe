package llm

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/deedscan/internal/common"
)

// RateLimitError is returned when the provider rejects a request for
// exceeding its quota. It unwraps to common.ErrExtractionTransport.
type RateLimitError struct {
	Provider   string
	Message    string
	RetryAfter time.Duration
	StatusCode int
}

func (e *RateLimitError) Error() string {
	msg := fmt.Sprintf("%s rate limited (status %d)", e.Provider, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(", retry after %s", e.RetryAfter)
	}
	return msg
}

func (e *RateLimitError) Unwrap() error {
	return common.ErrExtractionTransport
}

func transportError(provider string, status int, msg string) error {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return fmt.Errorf("%w: %s API error (status %d)", common.ErrExtractionTransport, provider, status)
	}
	return fmt.Errorf("%w: %s API error (status %d): %s", common.ErrExtractionTransport, provider, status, msg)
}

// parseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := time.Parse(time.RFC1123, v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
