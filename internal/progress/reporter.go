// Package progress tracks the latest progress event of each extraction
// session and adapts it to the sinks the pipeline reports through.
package progress

import (
	"sync"
	"time"

	"github.com/Veraticus/deedscan/internal/model"
)

const (
	// DefaultTTL is how long an event stays readable after its last update.
	DefaultTTL = 5 * time.Minute
	// DefaultSweepInterval is how often stale sessions are purged.
	DefaultSweepInterval = time.Minute
)

type entry struct {
	event   model.ProgressEvent
	updated time.Time
}

// Reporter is a concurrency-safe session id → latest event store with
// expiry. Writes are last-write-wins.
type Reporter struct {
	now      func() time.Time
	sessions map[string]entry
	stopCh   chan struct{}
	ttl      time.Duration
	mu       sync.Mutex
	stopOnce sync.Once
}

// NewReporter creates a reporter and starts its sweeper. Zero durations
// fall back to the defaults.
func NewReporter(ttl, sweepInterval time.Duration) *Reporter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	r := &Reporter{
		sessions: make(map[string]entry),
		stopCh:   make(chan struct{}),
		ttl:      ttl,
		now:      time.Now,
	}

	go r.sweepLoop(sweepInterval)

	return r
}

// Set records the latest event for a session.
func (r *Reporter) Set(sessionID string, step model.Step, percent int, message string) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = entry{
		event: model.ProgressEvent{
			Step:      step,
			Percent:   percent,
			Message:   message,
			Timestamp: now,
		},
		updated: now,
	}
}

// Get returns the latest event for a session. Stale entries are removed
// and reported as missing.
func (r *Reporter) Get(sessionID string) (model.ProgressEvent, bool) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[sessionID]
	if !ok {
		return model.ProgressEvent{}, false
	}
	if now.Sub(e.updated) > r.ttl {
		delete(r.sessions, sessionID)
		return model.ProgressEvent{}, false
	}
	return e.event, true
}

// Clear removes a session.
func (r *Reporter) Clear(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Len returns the number of tracked sessions, stale or not.
func (r *Reporter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sink returns a Sink that writes into this reporter under sessionID.
func (r *Reporter) Sink(sessionID string) Sink {
	return func(step model.Step, percent int, message string) {
		r.Set(sessionID, step, percent, message)
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (r *Reporter) Close() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

func (r *Reporter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Reporter) sweep() {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.sessions {
		if now.Sub(e.updated) > r.ttl {
			delete(r.sessions, id)
		}
	}
}
