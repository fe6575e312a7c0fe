package extract

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/Veraticus/deedscan/internal/chunk"
	"github.com/Veraticus/deedscan/internal/common"
	"github.com/Veraticus/deedscan/internal/llm"
	"github.com/Veraticus/deedscan/internal/model"
)

// DefaultMaxAttempts is the total number of tries per segment.
const DefaultMaxAttempts = 3

// Retrier runs an Extractor against one segment with exponential backoff:
// after the n-th failed attempt it waits 2^n backoff units (seconds by
// default) before trying again.
type Retrier struct {
	extractor   Extractor
	logger      *slog.Logger
	timer       retry.Timer
	unit        time.Duration
	maxAttempts uint
}

// RetrierOption customizes a Retrier.
type RetrierOption func(*Retrier)

// WithTimer replaces the clock used for backoff sleeps.
func WithTimer(t retry.Timer) RetrierOption {
	return func(r *Retrier) { r.timer = t }
}

// WithBackoffUnit scales the backoff schedule.
func WithBackoffUnit(d time.Duration) RetrierOption {
	return func(r *Retrier) { r.unit = d }
}

// NewRetrier wraps extractor. maxAttempts below one uses DefaultMaxAttempts.
func NewRetrier(extractor Extractor, maxAttempts int, logger *slog.Logger, opts ...RetrierOption) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	r := &Retrier{
		extractor:   extractor,
		logger:      common.LoggerOrDefault(logger),
		unit:        time.Second,
		maxAttempts: uint(maxAttempts),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do extracts seg, retrying failures. When every attempt fails it returns a
// *common.SegmentExhaustedError wrapping the last failure.
func (r *Retrier) Do(ctx context.Context, seg model.Segment) (model.SegmentResult, error) {
	var (
		records  []model.ExtractedRecord
		attempts int
		start    time.Time
	)

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(r.maxAttempts),
		retry.LastErrorOnly(true),
		retry.DelayType(func(_ uint, err error, _ *retry.Config) time.Duration {
			return r.backoff(attempts, err)
		}),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		retry.OnRetry(func(_ uint, err error) {
			r.logger.Warn("Segment extraction failed",
				"segment_index", seg.Index,
				"attempt", attempts,
				"max_attempts", r.maxAttempts,
				"error", err)
		}),
	}
	if r.timer != nil {
		opts = append(opts, retry.WithTimer(r.timer))
	}

	err := retry.Do(func() error {
		attempts++
		start = time.Now()
		var err error
		records, err = r.extractor.Extract(ctx, seg.Text)
		return err
	}, opts...)
	if err != nil {
		return model.SegmentResult{}, &common.SegmentExhaustedError{
			SegmentIndex: seg.Index,
			Attempts:     attempts,
			Err:          err,
		}
	}

	return model.SegmentResult{
		Records:         records,
		SegmentIndex:    seg.Index,
		EstimatedTokens: chunk.EstimateTokens(seg.Text),
		Duration:        time.Since(start),
	}, nil
}

// backoff is the wait after the given 1-based attempt failed. A provider
// Retry-After longer than the computed backoff wins.
func (r *Retrier) backoff(attempt int, err error) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt))) * r.unit

	var rl *llm.RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > d {
		d = rl.RetryAfter
	}
	return d
}
