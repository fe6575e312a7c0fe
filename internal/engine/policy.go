package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/Veraticus/deedscan/internal/common"
)

// DefaultHardCeiling caps in-flight segment requests regardless of band.
const DefaultHardCeiling = 5

// BatchBand applies to runs of up to MaxSegments segments. A zero
// Concurrency runs every segment of the run at once.
type BatchBand struct {
	MaxSegments int           `mapstructure:"max_segments"`
	Concurrency int           `mapstructure:"concurrency"`
	Delay       time.Duration `mapstructure:"delay"`
}

// BatchPolicy chooses wave size and inter-wave delay from the number of
// segments in a run. Runs larger than every band use Fallback.
type BatchPolicy struct {
	Bands       []BatchBand
	Fallback    BatchBand
	HardCeiling int
}

// DefaultBatchPolicy returns the stock bands.
func DefaultBatchPolicy() BatchPolicy {
	return BatchPolicy{
		Bands: []BatchBand{
			{MaxSegments: 3, Concurrency: 0, Delay: time.Second},
			{MaxSegments: 10, Concurrency: 3, Delay: 2 * time.Second},
		},
		Fallback:    BatchBand{Concurrency: 2, Delay: 3 * time.Second},
		HardCeiling: DefaultHardCeiling,
	}
}

// Validate rejects negative values.
func (p BatchPolicy) Validate() error {
	if p.HardCeiling < 1 {
		return fmt.Errorf("%w: batch hard ceiling must be positive, got %d", common.ErrInvalidConfig, p.HardCeiling)
	}
	for _, b := range append([]BatchBand{p.Fallback}, p.Bands...) {
		if b.Concurrency < 0 || b.Delay < 0 || b.MaxSegments < 0 {
			return fmt.Errorf("%w: batch band %+v", common.ErrInvalidConfig, b)
		}
	}
	return nil
}

// For returns the wave size and delay for a run of segments segments.
func (p BatchPolicy) For(segments int) (int, time.Duration) {
	bands := make([]BatchBand, len(p.Bands))
	copy(bands, p.Bands)
	sort.Slice(bands, func(i, j int) bool { return bands[i].MaxSegments < bands[j].MaxSegments })

	band := p.Fallback
	for _, b := range bands {
		if segments <= b.MaxSegments {
			band = b
			break
		}
	}

	concurrency := band.Concurrency
	if concurrency == 0 {
		concurrency = segments
	}

	ceiling := p.HardCeiling
	if ceiling < 1 {
		ceiling = DefaultHardCeiling
	}
	concurrency = min(concurrency, ceiling)
	return max(concurrency, 1), band.Delay
}
