package application

import (
	"context"
	"fmt"
	"log"
	"time"

	surplus "energy-surplus/internal/surplus/domain"
)

// RunStarter starts a corpus run.
type RunStarter interface {
	Run(ctx context.Context, trigger string) (*surplus.Run, error)
}

// Scheduler triggers one run per day at a fixed UTC wall-clock time.
type Scheduler struct {
	runner RunStarter
	offset time.Duration
	logger *log.Logger
	now    func() time.Time
}

// NewScheduler constructs a Scheduler. dailyAt is HH:MM in UTC.
func NewScheduler(runner RunStarter, dailyAt string, logger *log.Logger) (*Scheduler, error) {
	at, err := time.Parse("15:04", dailyAt)
	if err != nil {
		return nil, fmt.Errorf("surplus scheduler: daily_at %q: %w", dailyAt, err)
	}
	return &Scheduler{
		runner: runner,
		offset: time.Duration(at.Hour())*time.Hour + time.Duration(at.Minute())*time.Minute,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start sleeps until each daily slot and runs, until ctx is done. A slot
// missed while a run is still executing is skipped.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.runner == nil {
		return
	}
	for {
		next := s.nextRun(s.now())
		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if _, err := s.runner.Run(ctx, TriggerSchedule); err != nil && s.logger != nil {
			s.logger.Printf("event=surplus_schedule_failed slot=%s error=%v", next.Format(time.RFC3339), err)
		}
	}
}

// nextRun returns the first slot strictly after now.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	now = now.UTC()
	slot := now.Truncate(24 * time.Hour).Add(s.offset)
	if !slot.After(now) {
		slot = slot.Add(24 * time.Hour)
	}
	return slot
}
