package chunk

import (
	"fmt"
	"sort"

	"github.com/Veraticus/deedscan/internal/common"
)

// Band maps documents estimated at up to MaxTokens to a per-segment budget.
type Band struct {
	MaxTokens     int `mapstructure:"max_tokens" json:"max_tokens"`
	SegmentTokens int `mapstructure:"segment_tokens" json:"segment_tokens"`
}

// BudgetPolicy picks a per-segment token budget from a document estimate.
// Documents larger than every band use Floor.
type BudgetPolicy struct {
	Bands []Band
	Floor int
}

// DefaultBudgetPolicy returns the stock bands. Small documents fit in one
// segment; larger ones get progressively smaller segments so each request
// stays well inside the model's output limit.
func DefaultBudgetPolicy() BudgetPolicy {
	return BudgetPolicy{
		Bands: []Band{
			{MaxTokens: 15000, SegmentTokens: 25000},
			{MaxTokens: 60000, SegmentTokens: 15000},
			{MaxTokens: 200000, SegmentTokens: 12000},
		},
		Floor: 10000,
	}
}

// Validate checks that every budget is positive.
func (p BudgetPolicy) Validate() error {
	if p.Floor < 1 {
		return fmt.Errorf("%w: chunk floor must be positive, got %d", common.ErrInvalidConfig, p.Floor)
	}
	for _, b := range p.Bands {
		if b.SegmentTokens < 1 || b.MaxTokens < 1 {
			return fmt.Errorf("%w: chunk band %+v", common.ErrInvalidConfig, b)
		}
	}
	return nil
}

// SegmentBudget returns the per-segment budget for a document of
// estimatedTokens.
func (p BudgetPolicy) SegmentBudget(estimatedTokens int) int {
	bands := make([]Band, len(p.Bands))
	copy(bands, p.Bands)
	sort.Slice(bands, func(i, j int) bool { return bands[i].MaxTokens < bands[j].MaxTokens })

	for _, b := range bands {
		if estimatedTokens <= b.MaxTokens {
			return b.SegmentTokens
		}
	}
	return p.Floor
}
