package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/deedscan/internal/common"
	"github.com/Veraticus/deedscan/internal/model"
	"github.com/Veraticus/deedscan/internal/progress"
)

// SegmentRunner extracts one segment, retrying as it sees fit.
type SegmentRunner interface {
	Do(ctx context.Context, seg model.Segment) (model.SegmentResult, error)
}

// RunStats summarizes a scheduler run.
type RunStats struct {
	FailedIndices   []int
	Segments        int
	Succeeded       int
	Failed          int
	Waves           int
	Concurrency     int
	EstimatedTokens int
	Extracted       int
	Duplicates      int
	Duration        time.Duration
}

// Scheduler runs segments in waves of bounded size. Each wave settles
// completely before the next one starts.
type Scheduler struct {
	runner SegmentRunner
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	policy BatchPolicy
	lower  int
	upper  int
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithProgressRange sets the percentages reported for the first and last
// settled segment.
func WithProgressRange(lower, upper int) SchedulerOption {
	return func(s *Scheduler) {
		s.lower, s.upper = lower, upper
	}
}

// WithSleep replaces the inter-wave sleep.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) SchedulerOption {
	return func(s *Scheduler) { s.sleep = sleep }
}

// NewScheduler creates a scheduler.
func NewScheduler(runner SegmentRunner, policy BatchPolicy, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		runner: runner,
		policy: policy,
		logger: common.LoggerOrDefault(logger),
		sleep:  sleepContext,
		lower:  20,
		upper:  85,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run extracts every segment and returns the deduplicated records in
// segment order. Failed segments are logged and skipped; the run fails only
// when no segment succeeds or ctx is done.
func (s *Scheduler) Run(ctx context.Context, segments []model.Segment, sink progress.Sink) ([]model.ExtractedRecord, RunStats, error) {
	start := time.Now()
	sink = progress.OrDiscard(sink)
	total := len(segments)

	stats := RunStats{Segments: total}
	if total == 0 {
		return nil, stats, fmt.Errorf("%w: no segments to extract", common.ErrPipelineFatal)
	}

	concurrency, delay := s.policy.For(total)
	stats.Concurrency = concurrency

	s.logger.Info("Starting segment extraction",
		"segments", total,
		"concurrency", concurrency,
		"wave_delay", delay)

	var (
		records   []model.ExtractedRecord
		mu        sync.Mutex
		processed int
		percent   = s.lower
	)

	for waveStart := 0; waveStart < total; waveStart += concurrency {
		wave := segments[waveStart:min(waveStart+concurrency, total)]
		results := make([]model.SegmentResult, len(wave))
		errs := make([]error, len(wave))
		stats.Waves++

		var g errgroup.Group
		for i, seg := range wave {
			g.Go(func() error {
				res, err := s.runner.Do(ctx, seg)
				results[i], errs[i] = res, err

				mu.Lock()
				defer mu.Unlock()
				processed++
				percent = s.lower + (s.upper-s.lower)*processed/total
				if err != nil {
					sink(model.StepExtracting, percent, fmt.Sprintf("Segment %d/%d failed", seg.Index+1, total))
				} else {
					sink(model.StepExtracting, percent, fmt.Sprintf("Segment %d/%d done (%d records)", seg.Index+1, total, len(res.Records)))
				}
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return nil, stats, err
		}

		for i, res := range results {
			if errs[i] != nil {
				stats.Failed++
				stats.FailedIndices = append(stats.FailedIndices, wave[i].Index)
				s.logger.Error("Segment extraction exhausted, continuing without it",
					"segment_index", wave[i].Index,
					"error", errs[i])
				continue
			}
			stats.Succeeded++
			stats.EstimatedTokens += res.EstimatedTokens
			records = append(records, res.Records...)
			s.logger.Debug("Segment extracted",
				"segment_index", res.SegmentIndex,
				"records", len(res.Records),
				"duration", res.Duration)
		}

		if waveStart+concurrency < total && delay > 0 {
			sink(model.StepWaiting, percent, fmt.Sprintf("Waiting %s before next batch", delay))
			if err := s.sleep(ctx, delay); err != nil {
				stats.Duration = time.Since(start)
				return nil, stats, err
			}
		}
	}

	stats.Duration = time.Since(start)
	if stats.Succeeded == 0 {
		return nil, stats, fmt.Errorf("%w: all %d segments failed", common.ErrPipelineFatal, total)
	}

	stats.Extracted = len(records)
	records = Dedupe(records)
	stats.Duplicates = stats.Extracted - len(records)

	s.logger.Info("Segment extraction finished",
		"segments", total,
		"failed", stats.Failed,
		"records", len(records),
		"duplicates", stats.Duplicates,
		"duration", stats.Duration)

	return records, stats, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
