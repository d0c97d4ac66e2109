package application

import (
	"time"

	timeseries "energy-surplus/internal/timeseries/domain"
)

// CorpusComputed is published after a run stored its corpus.
type CorpusComputed struct {
	RunID       string                   `json:"run_id"`
	Trigger     string                   `json:"trigger"`
	Countries   []timeseries.CountryCode `json:"countries"`
	Omitted     []timeseries.CountryCode `json:"omitted,omitempty"`
	Rows        int                      `json:"rows"`
	Diagnostics int                      `json:"diagnostics"`
	Report      string                   `json:"report,omitempty"`
	OccurredAt  time.Time                `json:"occurred_at"`
}

// RunFailed is published when a run aborts.
type RunFailed struct {
	RunID      string    `json:"run_id"`
	Trigger    string    `json:"trigger"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CorrelationID ties the event to its run.
func (e CorpusComputed) CorrelationID() string { return e.RunID }

// CorrelationID ties the event to its run.
func (e RunFailed) CorrelationID() string { return e.RunID }
