package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	surplus "energy-surplus/internal/surplus/domain"
	timeseries "energy-surplus/internal/timeseries/domain"
)

const defaultTablePrefix = "surplus"

var errNilDB = errors.New("surplus repo: nil db")

// Repository is a Postgres implementation of the run store.
type Repository struct {
	db     *sql.DB
	prefix string
}

// RepositoryOption configures the repository.
type RepositoryOption func(*Repository)

// WithTablePrefix overrides the table name prefix.
func WithTablePrefix(prefix string) RepositoryOption {
	return func(repo *Repository) {
		if prefix != "" {
			repo.prefix = prefix
		}
	}
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB, opts ...RepositoryOption) (*Repository, error) {
	if db == nil {
		return nil, errNilDB
	}
	repo := &Repository{db: db, prefix: defaultTablePrefix}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

func (r *Repository) runs() string        { return r.prefix + "_runs" }
func (r *Repository) rows() string        { return r.prefix + "_rows" }
func (r *Repository) diagnostics() string { return r.prefix + "_diagnostics" }

// EnsureSchema creates the tables when they do not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	trigger TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	countries INTEGER NOT NULL DEFAULT 0,
	row_count INTEGER NOT NULL DEFAULT 0,
	diagnostic_count INTEGER NOT NULL DEFAULT 0,
	report_location TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	started_at TIMESTAMPTZ,
	finished_at TIMESTAMPTZ
)`, r.runs()),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	country_code TEXT NOT NULL,
	hour TIMESTAMPTZ NOT NULL,
	generation DOUBLE PRECISION NOT NULL,
	load DOUBLE PRECISION NOT NULL,
	surplus DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, country_code, hour)
)`, r.rows()),
		fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS seq INTEGER NOT NULL DEFAULT 0`, r.rows()),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	country_code TEXT NOT NULL,
	energy_type TEXT NOT NULL,
	stage TEXT NOT NULL,
	reason TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
)`, r.diagnostics()),
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateRun inserts a run.
func (r *Repository) CreateRun(ctx context.Context, run *surplus.Run) error {
	if r == nil || r.db == nil {
		return errNilDB
	}
	if run == nil {
		return surplus.ErrNilRun
	}
	if run.ID == "" {
		return surplus.ErrEmptyRunID
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (
	id, trigger, status, error, countries, row_count, diagnostic_count, report_location, created_at, started_at, finished_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)`, r.runs()),
		run.ID, run.Trigger, string(run.Status), run.Error, run.Countries, run.Rows, run.Diagnostics,
		run.ReportLocation, run.CreatedAt.UTC(), utcPtr(run.StartedAt), utcPtr(run.FinishedAt))
	return err
}

// UpdateRun writes the mutable fields of a run.
func (r *Repository) UpdateRun(ctx context.Context, run *surplus.Run) error {
	if r == nil || r.db == nil {
		return errNilDB
	}
	if run == nil {
		return surplus.ErrNilRun
	}
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`
UPDATE %s
SET status = $1, error = $2, countries = $3, row_count = $4, diagnostic_count = $5,
	report_location = $6, started_at = $7, finished_at = $8
WHERE id = $9`, r.runs()),
		string(run.Status), run.Error, run.Countries, run.Rows, run.Diagnostics,
		run.ReportLocation, utcPtr(run.StartedAt), utcPtr(run.FinishedAt), run.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return surplus.ErrRunNotFound
	}
	return nil
}

const runColumns = `id, trigger, status, error, countries, row_count, diagnostic_count, report_location, created_at, started_at, finished_at`

// GetRun loads a run by id.
func (r *Repository) GetRun(ctx context.Context, id string) (*surplus.Run, error) {
	if r == nil || r.db == nil {
		return nil, errNilDB
	}
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT %s
FROM %s
WHERE id = $1`, runColumns, r.runs()), id)
	return scanRun(row)
}

// LatestRun returns the most recent run, optionally filtered by status.
func (r *Repository) LatestRun(ctx context.Context, status surplus.RunStatus) (*surplus.Run, error) {
	if r == nil || r.db == nil {
		return nil, errNilDB
	}
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT %s
FROM %s
WHERE ($1 = '' OR status = $1)
ORDER BY created_at DESC
LIMIT 1`, runColumns, r.runs()), string(status))
	return scanRun(row)
}

// CountRuns returns the number of stored runs per status.
func (r *Repository) CountRuns(ctx context.Context) (map[string]int, error) {
	if r == nil || r.db == nil {
		return nil, errNilDB
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT status, COUNT(*)
FROM %s
GROUP BY status`, r.runs()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// SaveResult replaces the rows and diagnostics of a run in one transaction.
func (r *Repository) SaveResult(ctx context.Context, runID string, corpus surplus.Corpus, diagnostics []surplus.Diagnostic) (err error) {
	if r == nil || r.db == nil {
		return errNilDB
	}
	if runID == "" {
		return surplus.ErrEmptyRunID
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE run_id = $1`, r.rows()), runID); err != nil {
		return err
	}
	insertRow := fmt.Sprintf(`
INSERT INTO %s (run_id, seq, country_code, hour, generation, load, surplus)
VALUES ($1,$2,$3,$4,$5,$6,$7)`, r.rows())
	for i, row := range corpus.Rows() {
		if _, err = tx.ExecContext(ctx, insertRow, runID, i, string(row.Country), row.Hour.UTC(), row.Generation, row.Load, row.Surplus); err != nil {
			return err
		}
	}

	if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE run_id = $1`, r.diagnostics()), runID); err != nil {
		return err
	}
	insertDiagnostic := fmt.Sprintf(`
INSERT INTO %s (run_id, seq, country_code, energy_type, stage, reason)
VALUES ($1,$2,$3,$4,$5,$6)`, r.diagnostics())
	for i, d := range diagnostics {
		if _, err = tx.ExecContext(ctx, insertDiagnostic, runID, i, string(d.Country), string(d.EnergyType), string(d.Stage), d.Reason); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// QueryRows returns stored rows of a run in corpus order.
func (r *Repository) QueryRows(ctx context.Context, query surplus.RowQuery) ([]surplus.SurplusRow, error) {
	if r == nil || r.db == nil {
		return nil, errNilDB
	}
	var from, to any
	if !query.From.IsZero() {
		from = query.From.UTC()
	}
	if !query.To.IsZero() {
		to = query.To.UTC()
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT country_code, hour, generation, load, surplus
FROM %s
WHERE run_id = $1
	AND ($2 = '' OR country_code = $2)
	AND ($3::timestamptz IS NULL OR hour >= $3)
	AND ($4::timestamptz IS NULL OR hour < $4)
ORDER BY seq ASC`, r.rows()), query.RunID, string(query.Country), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []surplus.SurplusRow
	for rows.Next() {
		var row surplus.SurplusRow
		var country string
		if err := rows.Scan(&country, &row.Hour, &row.Generation, &row.Load, &row.Surplus); err != nil {
			return nil, err
		}
		row.Country = timeseries.CountryCode(country)
		row.Hour = row.Hour.UTC()
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Diagnostics returns the diagnostics of a run in recorded order.
func (r *Repository) Diagnostics(ctx context.Context, runID string) ([]surplus.Diagnostic, error) {
	if r == nil || r.db == nil {
		return nil, errNilDB
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT country_code, energy_type, stage, reason
FROM %s
WHERE run_id = $1
ORDER BY seq ASC`, r.diagnostics()), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []surplus.Diagnostic
	for rows.Next() {
		var country, energyType, stage string
		var d surplus.Diagnostic
		if err := rows.Scan(&country, &energyType, &stage, &d.Reason); err != nil {
			return nil, err
		}
		d.Country = timeseries.CountryCode(country)
		d.EnergyType = timeseries.EnergyType(energyType)
		d.Stage = surplus.Stage(stage)
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*surplus.Run, error) {
	var run surplus.Run
	var status string
	var started, finished sql.NullTime
	if err := row.Scan(
		&run.ID,
		&run.Trigger,
		&status,
		&run.Error,
		&run.Countries,
		&run.Rows,
		&run.Diagnostics,
		&run.ReportLocation,
		&run.CreatedAt,
		&started,
		&finished,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, surplus.ErrRunNotFound
		}
		return nil, err
	}
	run.Status = surplus.RunStatus(status)
	run.CreatedAt = run.CreatedAt.UTC()
	if started.Valid {
		t := started.Time.UTC()
		run.StartedAt = &t
	}
	if finished.Valid {
		t := finished.Time.UTC()
		run.FinishedAt = &t
	}
	return &run, nil
}

var _ surplus.Repository = (*Repository)(nil)

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
