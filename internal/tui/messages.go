package tui

import (
	"time"

	"github.com/Veraticus/deedscan/internal/ingest"
)

// pollMsg asks the model to read the reporter.
type pollMsg time.Time

// doneMsg carries the outcome of the ingest run.
type doneMsg struct {
	result *ingest.Result
	err    error
}
