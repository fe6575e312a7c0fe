package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentExhaustedError(t *testing.T) {
	cause := fmt.Errorf("%w: status 500", ErrExtractionTransport)
	err := error(&SegmentExhaustedError{SegmentIndex: 4, Attempts: 3, Err: cause})

	assert.Equal(t, "segment 4 failed after 3 attempts: extraction request failed: status 500", err.Error())
	assert.True(t, errors.Is(err, ErrExtractionTransport))

	var exhausted *SegmentExhaustedError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &exhausted))
	assert.Equal(t, 4, exhausted.SegmentIndex)
}

func TestUserError(t *testing.T) {
	err := NewUserError("extraction failed", ErrPipelineFatal)
	assert.Equal(t, "extraction failed: extraction failed", err.Error())
	assert.ErrorIs(t, err, ErrPipelineFatal)

	bare := NewUserError("nothing to do", nil)
	assert.Equal(t, "nothing to do", bare.Error())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(errors.New("boom")))
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(&RetryableError{Err: errors.New("bad request"), Retryable: false}))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("try again"), Retryable: true}))
	assert.False(t, IsRetryable(fmt.Errorf("write: %w", &RetryableError{Err: errors.New("forbidden")})))
	assert.True(t, IsRetryable(fmt.Errorf("%w: 429", ErrRateLimit)))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, slog.LevelInfo, "json")
	require.NoError(t, err)
	logger.Info("segment extracted", "segment_index", 2)
	assert.Contains(t, buf.String(), `"segment_index":2`)

	_, err = NewLogger(&buf, slog.LevelInfo, "xml")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
	_, err = ParseLevel("loud")
	assert.Error(t, err)

	assert.NotNil(t, LoggerOrDefault(nil))
}
