package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"energy-surplus/internal/eventing"
	"energy-surplus/internal/observability/metrics"
	surplus "energy-surplus/internal/surplus/domain"
	"energy-surplus/internal/surplus/notify"
)

const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
	TriggerStartup  = "startup"
)

// ReportWriter renders a finished run to a report directory and returns the
// location of the archived report.
type ReportWriter interface {
	WriteReport(dir string, run *surplus.Run, corpus surplus.Corpus, diagnostics []surplus.Diagnostic) (string, error)
}

// CorpusComputer computes a corpus under a policy.
type CorpusComputer interface {
	ComputeSurplusCorpus(ctx context.Context, policy surplus.Policy) (Result, error)
}

// RunnerConfig holds run-level settings.
type RunnerConfig struct {
	Policy        surplus.Policy
	StorageRoot   string
	PublicBaseURL string
	// NotifyThreshold is the diagnostic count at which a notification is
	// sent. Zero disables notifications.
	NotifyThreshold int
}

// Runner executes corpus runs end to end.
type Runner struct {
	repo     surplus.Repository
	pipeline CorpusComputer
	reporter ReportWriter
	bus      eventing.Publisher
	notifier notify.Notifier
	cfg      RunnerConfig
	logger   *log.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
}

// NewRunner constructs a Runner. Reporter, bus and notifier are optional.
func NewRunner(repo surplus.Repository, pipeline CorpusComputer, reporter ReportWriter, bus eventing.Publisher, notifier notify.Notifier, cfg RunnerConfig, logger *log.Logger) (*Runner, error) {
	if repo == nil {
		return nil, errors.New("surplus runner: nil repository")
	}
	if pipeline == nil {
		return nil, errors.New("surplus runner: nil pipeline")
	}
	return &Runner{
		repo:     repo,
		pipeline: pipeline,
		reporter: reporter,
		bus:      bus,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run computes, stores and reports one corpus. Only one run executes at a time.
func (r *Runner) Run(ctx context.Context, trigger string) (*surplus.Run, error) {
	if r == nil {
		return nil, errors.New("surplus runner: nil")
	}
	if !r.acquire() {
		return nil, surplus.ErrRunInProgress
	}
	defer r.release()

	if trigger == "" {
		trigger = TriggerManual
	}
	run := &surplus.Run{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Status:    surplus.RunCreated,
		CreatedAt: r.now(),
	}
	if err := r.repo.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	started := r.now()
	run.Status = surplus.RunRunning
	run.StartedAt = &started
	if err := r.repo.UpdateRun(ctx, run); err != nil {
		return nil, r.fail(ctx, run, fmt.Errorf("surplus runner: mark running: %w", err))
	}
	r.logf("surplus_run_start", run, "")

	result, err := r.pipeline.ComputeSurplusCorpus(ctx, r.cfg.Policy)
	if err != nil {
		return nil, r.fail(ctx, run, err)
	}
	if err := r.repo.SaveResult(ctx, run.ID, result.Corpus, result.Diagnostics); err != nil {
		return nil, r.fail(ctx, run, err)
	}

	run.Countries = len(result.Corpus.Groups)
	run.Rows = result.Corpus.Len()
	run.Diagnostics = len(result.Diagnostics)
	if r.reporter != nil {
		dir := filepath.Join(r.cfg.StorageRoot, run.CreatedAt.Format("2006-01-02"), run.ID)
		location, err := r.reporter.WriteReport(dir, run, result.Corpus, result.Diagnostics)
		if err != nil {
			return nil, r.fail(ctx, run, fmt.Errorf("surplus runner: report: %w", err))
		}
		run.ReportLocation = location
	}

	finished := r.now()
	run.Status = surplus.RunSucceeded
	run.FinishedAt = &finished
	if err := r.repo.UpdateRun(ctx, run); err != nil {
		return nil, r.fail(ctx, run, fmt.Errorf("surplus runner: mark succeeded: %w", err))
	}
	metrics.ObserveRun(string(surplus.RunSucceeded), finished.Sub(started))

	r.publish(ctx, run, CorpusComputed{
		RunID:       run.ID,
		Trigger:     run.Trigger,
		Countries:   result.Corpus.Countries(),
		Omitted:     result.OmittedCountries(),
		Rows:        run.Rows,
		Diagnostics: run.Diagnostics,
		Report:      run.ReportLocation,
		OccurredAt:  finished,
	})

	if r.shouldNotify(result) {
		if err := r.notify(ctx, run, result); err != nil {
			metrics.IncNotify(metrics.ResultError)
			r.logf("surplus_notify_failed", run, err.Error())
		} else {
			metrics.IncNotify(metrics.ResultSuccess)
		}
	}

	r.logf("surplus_run_success", run, "")
	return run.Clone(), nil
}

func (r *Runner) fail(ctx context.Context, run *surplus.Run, cause error) error {
	finished := r.now()
	run.Status = surplus.RunFailed
	run.Error = cause.Error()
	run.FinishedAt = &finished
	if err := r.repo.UpdateRun(ctx, run); err != nil {
		r.logf("surplus_run_update_failed", run, err.Error())
	}
	started := finished
	if run.StartedAt != nil {
		started = *run.StartedAt
	}
	metrics.ObserveRun(string(surplus.RunFailed), finished.Sub(started))
	r.publish(ctx, run, RunFailed{RunID: run.ID, Trigger: run.Trigger, Error: run.Error, OccurredAt: finished})
	r.logf("surplus_run_failed", run, cause.Error())
	return cause
}

func (r *Runner) publish(ctx context.Context, run *surplus.Run, event any) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(ctx, event); err != nil {
		r.logf("surplus_event_failed", run, err.Error())
	}
}

func (r *Runner) shouldNotify(result Result) bool {
	return r.notifier != nil && r.cfg.NotifyThreshold > 0 && len(result.Diagnostics) >= r.cfg.NotifyThreshold
}

func (r *Runner) notify(ctx context.Context, run *surplus.Run, result Result) error {
	reasons := make(map[string]int)
	for _, d := range result.Diagnostics {
		reasons[string(d.Stage)]++
	}
	countries := make([]string, 0, len(result.Corpus.Groups))
	for _, country := range result.Corpus.Countries() {
		countries = append(countries, string(country))
	}
	var omitted []string
	for _, country := range result.OmittedCountries() {
		omitted = append(omitted, string(country))
	}
	msg := notify.RunMessage{
		RunID:       run.ID,
		Trigger:     run.Trigger,
		Rows:        run.Rows,
		Countries:   countries,
		Omitted:     omitted,
		Diagnostics: run.Diagnostics,
		Reasons:     reasons,
		Meta:        map[string]string{"status": string(run.Status)},
	}
	if r.cfg.PublicBaseURL != "" {
		msg.ReportURL = fmt.Sprintf("%s/api/v1/runs/%s", r.cfg.PublicBaseURL, run.ID)
	}
	return r.notifier.Notify(ctx, msg)
}

func (r *Runner) acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	return true
}

func (r *Runner) release() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *Runner) logf(event string, run *surplus.Run, errMsg string) {
	if r.logger == nil {
		return
	}
	r.logger.Printf("event=%s run_id=%s trigger=%s status=%s rows=%d diagnostics=%d error=%s",
		event, run.ID, run.Trigger, run.Status, run.Rows, run.Diagnostics, errMsg)
}
