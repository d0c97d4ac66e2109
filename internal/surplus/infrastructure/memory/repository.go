package memory

import (
	"context"
	"sync"

	surplus "energy-surplus/internal/surplus/domain"
)

// Repository is an in-memory run store for deployments without a database.
type Repository struct {
	mu          sync.RWMutex
	runs        map[string]*surplus.Run
	order       []string
	rows        map[string][]surplus.SurplusRow
	diagnostics map[string][]surplus.Diagnostic
}

// NewRepository constructs a repository.
func NewRepository() *Repository {
	return &Repository{
		runs:        make(map[string]*surplus.Run),
		rows:        make(map[string][]surplus.SurplusRow),
		diagnostics: make(map[string][]surplus.Diagnostic),
	}
}

// CreateRun stores a new run.
func (r *Repository) CreateRun(ctx context.Context, run *surplus.Run) error {
	_ = ctx
	if run == nil {
		return surplus.ErrNilRun
	}
	if run.ID == "" {
		return surplus.ErrEmptyRunID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		r.order = append(r.order, run.ID)
	}
	r.runs[run.ID] = run.Clone()
	return nil
}

// UpdateRun overwrites a stored run.
func (r *Repository) UpdateRun(ctx context.Context, run *surplus.Run) error {
	_ = ctx
	if run == nil {
		return surplus.ErrNilRun
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return surplus.ErrRunNotFound
	}
	r.runs[run.ID] = run.Clone()
	return nil
}

// GetRun loads a run by id.
func (r *Repository) GetRun(ctx context.Context, id string) (*surplus.Run, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, surplus.ErrRunNotFound
	}
	return run.Clone(), nil
}

// LatestRun returns the most recently created run with the given status.
func (r *Repository) LatestRun(ctx context.Context, status surplus.RunStatus) (*surplus.Run, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		run := r.runs[r.order[i]]
		if status == "" || run.Status == status {
			return run.Clone(), nil
		}
	}
	return nil, surplus.ErrRunNotFound
}

// CountRuns returns the number of stored runs per status.
func (r *Repository) CountRuns(ctx context.Context) (map[string]int, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, run := range r.runs {
		counts[string(run.Status)]++
	}
	return counts, nil
}

// SaveResult replaces the corpus and diagnostics of a run.
func (r *Repository) SaveResult(ctx context.Context, runID string, corpus surplus.Corpus, diagnostics []surplus.Diagnostic) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[runID]; !ok {
		return surplus.ErrRunNotFound
	}
	r.rows[runID] = corpus.Rows()
	r.diagnostics[runID] = append([]surplus.Diagnostic(nil), diagnostics...)
	return nil
}

// QueryRows returns the stored rows of a run that match the query.
func (r *Repository) QueryRows(ctx context.Context, query surplus.RowQuery) ([]surplus.SurplusRow, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.runs[query.RunID]; !ok {
		return nil, surplus.ErrRunNotFound
	}
	var out []surplus.SurplusRow
	for _, row := range r.rows[query.RunID] {
		if query.Matches(row) {
			out = append(out, row)
		}
	}
	return out, nil
}

// Diagnostics returns the diagnostics of a run.
func (r *Repository) Diagnostics(ctx context.Context, runID string) ([]surplus.Diagnostic, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.runs[runID]; !ok {
		return nil, surplus.ErrRunNotFound
	}
	return append([]surplus.Diagnostic(nil), r.diagnostics[runID]...), nil
}
