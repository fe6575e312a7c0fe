package progress

import (
	"sync"

	"github.com/Veraticus/deedscan/internal/model"
)

// Sink receives progress updates. Implementations must be safe for
// concurrent use; the scheduler reports from every in-flight segment.
type Sink func(step model.Step, percent int, message string)

// Discard drops every update.
func Discard(model.Step, int, string) {}

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// Monotonic wraps s so that reported percentages never decrease. A lower
// value is replaced by the highest value seen so far.
func Monotonic(s Sink) Sink {
	s = OrDiscard(s)
	var (
		mu   sync.Mutex
		high int
	)
	return func(step model.Step, percent int, message string) {
		mu.Lock()
		defer mu.Unlock()
		if percent < high {
			percent = high
		}
		high = percent
		s(step, percent, message)
	}
}

// Fanout forwards every update to each non-nil sink in order.
func Fanout(sinks ...Sink) Sink {
	var live []Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return func(step model.Step, percent int, message string) {
		for _, s := range live {
			s(step, percent, message)
		}
	}
}
