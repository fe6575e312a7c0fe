package model

import "time"

// Step names a pipeline stage in a progress event.
type Step string

// Pipeline steps.
const (
	StepParsing    Step = "parsing"
	StepAnalyzing  Step = "analyzing"
	StepExtracting Step = "extracting"
	StepProcessing Step = "processing"
	StepComplete   Step = "complete"
	StepWaiting    Step = "waiting"
)

// ProgressEvent is the latest progress reported for a session.
type ProgressEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Step      Step      `json:"step"`
	Message   string    `json:"message"`
	Percent   int       `json:"progress"`
}

// Done reports whether the event marks a finished run.
func (e ProgressEvent) Done() bool {
	return e.Step == StepComplete && e.Percent >= 100
}
