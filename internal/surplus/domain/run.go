package surplus

import (
	"context"
	"time"

	timeseries "energy-surplus/internal/timeseries/domain"
)

// RunStatus tracks the lifecycle of a corpus run.
type RunStatus string

const (
	RunCreated   RunStatus = "created"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one execution of the corpus computation.
type Run struct {
	ID             string     `json:"id"`
	Trigger        string     `json:"trigger"`
	Status         RunStatus  `json:"status"`
	Error          string     `json:"error,omitempty"`
	Countries      int        `json:"countries"`
	Rows           int        `json:"rows"`
	Diagnostics    int        `json:"diagnostics"`
	ReportLocation string     `json:"report_location,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// Clone returns a deep copy.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	out := *r
	if r.StartedAt != nil {
		started := *r.StartedAt
		out.StartedAt = &started
	}
	if r.FinishedAt != nil {
		finished := *r.FinishedAt
		out.FinishedAt = &finished
	}
	return &out
}

// RowQuery filters stored surplus rows of one run. Zero bounds are open.
type RowQuery struct {
	RunID   string
	Country timeseries.CountryCode
	From    time.Time
	To      time.Time
}

// Matches reports whether a row falls inside the query window.
func (q RowQuery) Matches(row SurplusRow) bool {
	if q.Country != "" && row.Country != q.Country {
		return false
	}
	if !q.From.IsZero() && row.Hour.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !row.Hour.Before(q.To) {
		return false
	}
	return true
}

// Repository persists runs and their results.
type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	// LatestRun returns the most recent run with the given status; an empty
	// status matches any run.
	LatestRun(ctx context.Context, status RunStatus) (*Run, error)
	SaveResult(ctx context.Context, runID string, corpus Corpus, diagnostics []Diagnostic) error
	QueryRows(ctx context.Context, query RowQuery) ([]SurplusRow, error)
	Diagnostics(ctx context.Context, runID string) ([]Diagnostic, error)
	CountRuns(ctx context.Context) (map[string]int, error)
}
