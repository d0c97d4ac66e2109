package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-surplus/internal/eventing"
	"energy-surplus/internal/observability/metrics"
	surplus "energy-surplus/internal/surplus/domain"
	"energy-surplus/internal/surplus/infrastructure/memory"
	"energy-surplus/internal/surplus/notify"
	timeseries "energy-surplus/internal/timeseries/domain"
)

type stubComputer struct {
	result Result
	err    error
	block  chan struct{}
}

func (s *stubComputer) ComputeSurplusCorpus(ctx context.Context, policy surplus.Policy) (Result, error) {
	if s.block != nil {
		<-s.block
	}
	return s.result, s.err
}

type stubReporter struct {
	dirs []string
}

func (s *stubReporter) WriteReport(dir string, run *surplus.Run, corpus surplus.Corpus, diagnostics []surplus.Diagnostic) (string, error) {
	s.dirs = append(s.dirs, dir)
	return dir + ".zip", nil
}

type recordingNotifier struct {
	messages []notify.RunMessage
}

func (n *recordingNotifier) Notify(ctx context.Context, msg notify.RunMessage) error {
	n.messages = append(n.messages, msg)
	return nil
}

func sampleResult() Result {
	corpus := surplus.AssembleCorpus([]timeseries.CountryCode{"DE"}, map[timeseries.CountryCode][]surplus.SurplusRow{
		"DE": {{Hour: day, Generation: 10, Load: 4, Surplus: 6}, {Hour: day.Add(time.Hour), Generation: 10, Load: 5, Surplus: 5}},
	})
	return Result{
		Corpus: corpus,
		Diagnostics: []surplus.Diagnostic{
			surplus.NewDiagnostic("SE", "", surplus.StageLoad, surplus.ErrNoLoad),
			surplus.NewDiagnostic("SP", "B10", surplus.StagePolicy, surplus.ErrSeriesExcluded),
		},
	}
}

func TestRunner_Success(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	reporter := &stubReporter{}
	notifier := &recordingNotifier{}
	bus := eventing.NewBus()
	var events []CorpusComputed
	eventing.Subscribe(bus, func(ctx context.Context, event CorpusComputed) error {
		events = append(events, event)
		return nil
	})

	runner, err := NewRunner(repo, &stubComputer{result: sampleResult()}, reporter, bus, notifier, RunnerConfig{
		Policy:          surplus.DefaultPolicy(),
		StorageRoot:     "reports",
		PublicBaseURL:   "http://surplus.local",
		NotifyThreshold: 2,
	}, nil)
	require.NoError(t, err)

	run, err := runner.Run(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, surplus.RunSucceeded, run.Status)
	assert.Equal(t, TriggerManual, run.Trigger)
	assert.Equal(t, 2, run.Rows)
	assert.Equal(t, 1, run.Countries)
	assert.Equal(t, 2, run.Diagnostics)
	require.Len(t, reporter.dirs, 1)
	assert.Equal(t, reporter.dirs[0]+".zip", run.ReportLocation)
	assert.Contains(t, reporter.dirs[0], run.ID)

	stored, err := repo.LatestRun(ctx, surplus.RunSucceeded)
	require.NoError(t, err)
	assert.Equal(t, run.ID, stored.ID)
	rows, err := repo.QueryRows(ctx, surplus.RowQuery{RunID: run.ID})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	require.Len(t, events, 1)
	assert.Equal(t, run.ID, events[0].RunID)
	assert.Equal(t, []timeseries.CountryCode{"SE"}, events[0].Omitted)

	require.Len(t, notifier.messages, 1)
	msg := notifier.messages[0]
	assert.Equal(t, map[string]int{"load": 1, "policy": 1}, msg.Reasons)
	assert.Equal(t, "http://surplus.local/api/v1/runs/"+run.ID, msg.ReportURL)
}

func TestRunner_BelowThresholdDoesNotNotify(t *testing.T) {
	notifier := &recordingNotifier{}
	runner, err := NewRunner(memory.NewRepository(), &stubComputer{result: sampleResult()}, nil, nil, notifier, RunnerConfig{NotifyThreshold: 3}, nil)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), TriggerSchedule)
	require.NoError(t, err)
	assert.Empty(t, notifier.messages)
}

func TestRunner_FailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	bus := eventing.NewBus()
	var failed []RunFailed
	eventing.Subscribe(bus, func(ctx context.Context, event RunFailed) error {
		failed = append(failed, event)
		return nil
	})
	runner, err := NewRunner(repo, &stubComputer{err: surplus.ErrNoCountries}, nil, bus, nil, RunnerConfig{}, nil)
	require.NoError(t, err)

	_, err = runner.Run(ctx, TriggerManual)
	require.ErrorIs(t, err, surplus.ErrNoCountries)

	stored, err := repo.LatestRun(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, surplus.RunFailed, stored.Status)
	assert.Equal(t, surplus.ErrNoCountries.Error(), stored.Error)
	assert.NotNil(t, stored.FinishedAt)
	require.Len(t, failed, 1)
	assert.Equal(t, stored.ID, failed[0].RunID)
}

func TestRunner_RejectsConcurrentRuns(t *testing.T) {
	block := make(chan struct{})
	runner, err := NewRunner(memory.NewRepository(), &stubComputer{result: sampleResult(), block: block}, nil, nil, nil, RunnerConfig{}, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background(), TriggerManual)
		done <- err
	}()

	require.Eventually(t, func() bool {
		runner.mu.Lock()
		defer runner.mu.Unlock()
		return runner.running
	}, time.Second, 5*time.Millisecond)

	_, err = runner.Run(context.Background(), TriggerManual)
	assert.ErrorIs(t, err, surplus.ErrRunInProgress)

	close(block)
	require.NoError(t, <-done)
}

func TestNewRunner_RequiresDependencies(t *testing.T) {
	_, err := NewRunner(nil, &stubComputer{}, nil, nil, nil, RunnerConfig{}, nil)
	assert.Error(t, err)
	_, err = NewRunner(memory.NewRepository(), nil, nil, nil, nil, RunnerConfig{}, nil)
	assert.Error(t, err)
}

type countingStarter struct {
	mu       sync.Mutex
	triggers []string
}

func (c *countingStarter) Run(ctx context.Context, trigger string) (*surplus.Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.triggers = append(c.triggers, trigger)
	return &surplus.Run{ID: "scheduled"}, nil
}

func (c *countingStarter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.triggers)
}

func TestScheduler_NextRun(t *testing.T) {
	_, err := NewScheduler(nil, "25:00", nil)
	assert.Error(t, err)

	s, err := NewScheduler(nil, "02:30", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 2, 30, 0, 0, time.UTC), s.nextRun(time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2024, 3, 2, 2, 30, 0, 0, time.UTC), s.nextRun(time.Date(2024, 3, 1, 2, 30, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2024, 3, 2, 2, 30, 0, 0, time.UTC), s.nextRun(time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)
}

func TestScheduler_FiresAtSlot(t *testing.T) {
	starter := &countingStarter{}
	s, err := NewScheduler(starter, "00:00", nil)
	require.NoError(t, err)
	slot := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	var calls int
	var mu sync.Mutex
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls <= 2 {
			return slot.Add(-10 * time.Millisecond)
		}
		return slot.Add(time.Hour)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	require.Eventually(t, func() bool { return starter.count() >= 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	starter.mu.Lock()
	assert.Equal(t, TriggerSchedule, starter.triggers[0])
	starter.mu.Unlock()
}

type failingStatusRepo struct {
	*memory.Repository
	failOn surplus.RunStatus
}

func (r failingStatusRepo) UpdateRun(ctx context.Context, run *surplus.Run) error {
	if run.Status == r.failOn {
		return errors.New("update rejected")
	}
	return r.Repository.UpdateRun(ctx, run)
}

func TestRunner_StatusUpdateFailureMarksRunFailed(t *testing.T) {
	for _, status := range []surplus.RunStatus{surplus.RunRunning, surplus.RunSucceeded} {
		ctx := context.Background()
		repo := failingStatusRepo{Repository: memory.NewRepository(), failOn: status}
		bus := eventing.NewBus()
		var failed []RunFailed
		eventing.Subscribe(bus, func(ctx context.Context, event RunFailed) error {
			failed = append(failed, event)
			return nil
		})
		runner, err := NewRunner(repo, &stubComputer{result: sampleResult()}, nil, bus, nil, RunnerConfig{}, nil)
		require.NoError(t, err)

		_, err = runner.Run(ctx, TriggerManual)
		require.Error(t, err, status)

		stored, err := repo.LatestRun(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, surplus.RunFailed, stored.Status, status)
		assert.Contains(t, stored.Error, "update rejected")
		require.Len(t, failed, 1, status)
		assert.Equal(t, stored.ID, failed[0].RunID)
	}
}

func TestSubscribeObservers_RecordsCorpusSize(t *testing.T) {
	metrics.Init()
	bus := eventing.NewBus()
	SubscribeObservers(bus)

	runner, err := NewRunner(memory.NewRepository(), &stubComputer{result: sampleResult()}, nil, bus, nil, RunnerConfig{}, nil)
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), TriggerManual)
	require.NoError(t, err)

	expected := `
# HELP surplus_corpus_rows Rows in the latest corpus
# TYPE surplus_corpus_rows gauge
surplus_corpus_rows 2
`
	assert.NoError(t, testutil.GatherAndCompare(prometheus.DefaultGatherer, strings.NewReader(expected), "surplus_corpus_rows"))
}
