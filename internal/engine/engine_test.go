package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/deedscan/internal/chunk"
	"github.com/Veraticus/deedscan/internal/common"
	"github.com/Veraticus/deedscan/internal/model"
	"github.com/Veraticus/deedscan/internal/progress"
)

// fakeRunner returns one record per segment keyed by segment index, fails
// the listed indices, and records ordering and concurrency.
type fakeRunner struct {
	fail     map[int]bool
	records  func(seg model.Segment) []model.ExtractedRecord
	events   []string
	inFlight atomic.Int32
	peak     atomic.Int32
	hold     time.Duration
	mu       sync.Mutex
}

func (r *fakeRunner) Do(_ context.Context, seg model.Segment) (model.SegmentResult, error) {
	n := r.inFlight.Add(1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	r.log(fmt.Sprintf("start %d", seg.Index))
	time.Sleep(r.hold)
	r.log(fmt.Sprintf("end %d", seg.Index))
	r.inFlight.Add(-1)

	if r.fail[seg.Index] {
		return model.SegmentResult{}, &common.SegmentExhaustedError{SegmentIndex: seg.Index, Attempts: 3, Err: common.ErrExtractionFormat}
	}

	recs := []model.ExtractedRecord{{SurveyNumber: fmt.Sprint(seg.Index), DocumentNumber: "D"}}
	if r.records != nil {
		recs = r.records(seg)
	}
	return model.SegmentResult{SegmentIndex: seg.Index, Records: recs, EstimatedTokens: 10}, nil
}

func (r *fakeRunner) log(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *fakeRunner) position(e string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, got := range r.events {
		if got == e {
			return i
		}
	}
	return -1
}

type progressLog struct {
	events []model.ProgressEvent
	mu     sync.Mutex
}

func (l *progressLog) sink(step model.Step, percent int, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, model.ProgressEvent{Step: step, Percent: percent, Message: message})
}

func (l *progressLog) steps(step model.Step) []model.ProgressEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.ProgressEvent
	for _, e := range l.events {
		if e.Step == step {
			out = append(out, e)
		}
	}
	return out
}

type sleepLog struct {
	delays []time.Duration
}

func (s *sleepLog) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func makeSegments(n int) []model.Segment {
	segs := make([]model.Segment, n)
	for i := range segs {
		segs[i] = model.Segment{Index: i, Text: fmt.Sprintf("segment %d", i)}
	}
	return segs
}

func twoWide() BatchPolicy {
	return BatchPolicy{Fallback: BatchBand{Concurrency: 2, Delay: 3 * time.Second}, HardCeiling: 5}
}

func TestSchedulerWaves(t *testing.T) {
	runner := &fakeRunner{hold: 5 * time.Millisecond}
	sleeps := &sleepLog{}
	s := NewScheduler(runner, twoWide(), nil, WithSleep(sleeps.sleep))
	log := &progressLog{}

	records, stats, err := s.Run(context.Background(), makeSegments(5), log.sink)
	require.NoError(t, err)

	require.Len(t, records, 5)
	for i, r := range records {
		assert.Equal(t, fmt.Sprint(i), r.SurveyNumber, "records stay in segment order")
	}
	assert.Equal(t, 3, stats.Waves)
	assert.Equal(t, 5, stats.Succeeded)
	assert.Equal(t, 50, stats.EstimatedTokens)
	assert.LessOrEqual(t, runner.peak.Load(), int32(2))

	// wave k settles before wave k+1 starts
	waves := [][]int{{0, 1}, {2, 3}, {4}}
	for k := 1; k < len(waves); k++ {
		for _, prev := range waves[k-1] {
			for _, next := range waves[k] {
				assert.Less(t, runner.position(fmt.Sprintf("end %d", prev)), runner.position(fmt.Sprintf("start %d", next)))
			}
		}
	}

	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, sleeps.delays)
	assert.Len(t, log.steps(model.StepWaiting), 2)

	extracting := log.steps(model.StepExtracting)
	require.Len(t, extracting, 5)
	assert.Equal(t, 85, extracting[4].Percent)
	for i := 1; i < len(extracting); i++ {
		assert.GreaterOrEqual(t, extracting[i].Percent, extracting[i-1].Percent)
	}
}

func TestSchedulerPartialFailure(t *testing.T) {
	runner := &fakeRunner{fail: map[int]bool{1: true, 3: true}}
	s := NewScheduler(runner, twoWide(), nil, WithSleep((&sleepLog{}).sleep))

	records, stats, err := s.Run(context.Background(), makeSegments(5), nil)
	require.NoError(t, err)

	var surveys []string
	for _, r := range records {
		surveys = append(surveys, r.SurveyNumber)
	}
	assert.Equal(t, []string{"0", "2", "4"}, surveys)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, []int{1, 3}, stats.FailedIndices)
}

func TestSchedulerAllFailed(t *testing.T) {
	runner := &fakeRunner{fail: map[int]bool{0: true, 1: true}}
	s := NewScheduler(runner, DefaultBatchPolicy(), nil, WithSleep((&sleepLog{}).sleep))

	_, stats, err := s.Run(context.Background(), makeSegments(2), nil)
	require.ErrorIs(t, err, common.ErrPipelineFatal)
	assert.Equal(t, 2, stats.Failed)

	_, _, err = s.Run(context.Background(), nil, nil)
	assert.ErrorIs(t, err, common.ErrPipelineFatal)
}

func TestSchedulerEmptySuccessIsNotFailure(t *testing.T) {
	runner := &fakeRunner{records: func(model.Segment) []model.ExtractedRecord { return nil }}
	s := NewScheduler(runner, DefaultBatchPolicy(), nil, WithSleep((&sleepLog{}).sleep))

	records, stats, err := s.Run(context.Background(), makeSegments(2), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 2, stats.Succeeded)
}

func TestSchedulerDeduplicatesAcrossSegments(t *testing.T) {
	runner := &fakeRunner{records: func(model.Segment) []model.ExtractedRecord {
		return []model.ExtractedRecord{{SurveyNumber: "12", DocumentNumber: "D1"}}
	}}
	s := NewScheduler(runner, DefaultBatchPolicy(), nil, WithSleep((&sleepLog{}).sleep))

	records, stats, err := s.Run(context.Background(), makeSegments(2), nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, stats.Duplicates)
}

func TestSchedulerHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{}
	s := NewScheduler(runner, twoWide(), nil, WithSleep(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}))

	_, stats, err := s.Run(ctx, makeSegments(5), nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stats.Waves)
}

func TestBatchPolicy(t *testing.T) {
	p := DefaultBatchPolicy()
	require.NoError(t, p.Validate())

	tests := []struct {
		segments    int
		concurrency int
		delay       time.Duration
	}{
		{1, 1, time.Second},
		{3, 3, time.Second},
		{4, 3, 2 * time.Second},
		{10, 3, 2 * time.Second},
		{11, 2, 3 * time.Second},
		{40, 2, 3 * time.Second},
	}
	for _, tt := range tests {
		c, d := p.For(tt.segments)
		assert.Equal(t, tt.concurrency, c, "segments=%d", tt.segments)
		assert.Equal(t, tt.delay, d, "segments=%d", tt.segments)
	}

	wide := BatchPolicy{Bands: []BatchBand{{MaxSegments: 100}}, HardCeiling: 5}
	c, _ := wide.For(12)
	assert.Equal(t, 5, c, "clamped to hard ceiling")

	assert.ErrorIs(t, BatchPolicy{}.Validate(), common.ErrInvalidConfig)
	assert.ErrorIs(t, BatchPolicy{HardCeiling: 1, Fallback: BatchBand{Concurrency: -1}}.Validate(), common.ErrInvalidConfig)
}

func TestSchedulerRespectsHardCeiling(t *testing.T) {
	runner := &fakeRunner{hold: 5 * time.Millisecond}
	policy := BatchPolicy{Bands: []BatchBand{{MaxSegments: 100}}, HardCeiling: 5}
	s := NewScheduler(runner, policy, nil, WithSleep((&sleepLog{}).sleep))

	_, stats, err := s.Run(context.Background(), makeSegments(12), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Concurrency)
	assert.Equal(t, 3, stats.Waves)
	assert.LessOrEqual(t, runner.peak.Load(), int32(5))
}

func TestDedupe(t *testing.T) {
	a := model.ExtractedRecord{SurveyNumber: "12", DocumentNumber: "D1", BuyerName: "first"}
	b := model.ExtractedRecord{SurveyNumber: "12", DocumentNumber: "D1", BuyerName: "second"}
	c := model.ExtractedRecord{SurveyNumber: "13", DocumentNumber: "D1"}
	d := model.ExtractedRecord{SurveyNumber: "12", DocumentNumber: "D2"}

	got := Dedupe([]model.ExtractedRecord{a, c, b, d, c})
	assert.Equal(t, []model.ExtractedRecord{a, c, d}, got)
	assert.Equal(t, got, Dedupe(got), "idempotent")

	keys := map[string]bool{}
	for _, r := range got {
		assert.False(t, keys[r.Key()])
		keys[r.Key()] = true
	}

	assert.Empty(t, Dedupe(nil))
}

func TestPipeline(t *testing.T) {
	runner := &fakeRunner{records: func(seg model.Segment) []model.ExtractedRecord {
		return []model.ExtractedRecord{{SurveyNumber: strings.TrimSpace(seg.Text), DocumentNumber: "D"}}
	}}
	s := NewScheduler(runner, DefaultBatchPolicy(), nil, WithSleep((&sleepLog{}).sleep))
	p := NewPipeline(s, chunk.BudgetPolicy{Floor: 10}, nil)

	text := strings.Repeat("a", 20) + strings.Repeat("b", 20) + strings.Repeat("c", 5)
	log := &progressLog{}

	records, stats, err := p.Extract(context.Background(), text, log.sink)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Segments)
	require.Len(t, records, 3)
	assert.Equal(t, strings.Repeat("c", 5), records[2].SurveyNumber)

	require.NotEmpty(t, log.events)
	assert.Equal(t, model.StepAnalyzing, log.events[0].Step)
	for i := 1; i < len(log.events); i++ {
		assert.GreaterOrEqual(t, log.events[i].Percent, log.events[i-1].Percent)
	}
}

func TestPipelineSingleSegment(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, DefaultBatchPolicy(), nil, WithSleep((&sleepLog{}).sleep))
	p := NewPipeline(s, chunk.DefaultBudgetPolicy(), nil)

	_, stats, err := p.Extract(context.Background(), strings.Repeat("x", 5000), progress.Discard)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Segments)
}

func TestPipelineEmptyText(t *testing.T) {
	p := NewPipeline(NewScheduler(&fakeRunner{}, DefaultBatchPolicy(), nil), chunk.DefaultBudgetPolicy(), nil)

	_, _, err := p.Extract(context.Background(), "  \n\f ", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPipelineFatal))
}
