package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/deedscan/internal/chunk"
	"github.com/Veraticus/deedscan/internal/common"
	"github.com/Veraticus/deedscan/internal/model"
	"github.com/Veraticus/deedscan/internal/progress"
)

// Pipeline turns document text into deduplicated records: it sizes
// segments from the document's token estimate, splits the text, and hands
// the segments to the scheduler.
type Pipeline struct {
	scheduler *Scheduler
	logger    *slog.Logger
	budget    chunk.BudgetPolicy
}

// NewPipeline creates a pipeline.
func NewPipeline(scheduler *Scheduler, budget chunk.BudgetPolicy, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		scheduler: scheduler,
		budget:    budget,
		logger:    common.LoggerOrDefault(logger),
	}
}

// Extract runs the pipeline over text. Progress reported through sink
// never decreases.
func (p *Pipeline) Extract(ctx context.Context, text string, sink progress.Sink) ([]model.ExtractedRecord, RunStats, error) {
	sink = progress.Monotonic(sink)

	if strings.TrimSpace(text) == "" {
		return nil, RunStats{}, fmt.Errorf("%w: document has no text", common.ErrPipelineFatal)
	}

	tokens := chunk.EstimateTokens(text)
	budget := p.budget.SegmentBudget(tokens)
	sink(model.StepAnalyzing, 15, fmt.Sprintf("Analyzing document (~%d tokens)", tokens))

	segments, err := chunk.Split(text, budget)
	if err != nil {
		return nil, RunStats{}, fmt.Errorf("%w: %w", common.ErrPipelineFatal, err)
	}

	p.logger.Info("Document split",
		"estimated_tokens", tokens,
		"segment_budget", budget,
		"segments", len(segments))
	sink(model.StepExtracting, 20, fmt.Sprintf("Extracting from %d segment(s)", len(segments)))

	return p.scheduler.Run(ctx, segments, sink)
}
