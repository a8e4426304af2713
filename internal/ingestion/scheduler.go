package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// EverySpec returns the cron spec that fires every d.
func EverySpec(d time.Duration) string {
	return "@every " + d.String()
}

// Scheduler runs ingestion cycles on a cron schedule. A cycle still running
// when the next one is due causes that one to be skipped.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler for runner. loc is the time zone cron
// expressions are evaluated in; nil means UTC.
func NewScheduler(runner *Runner, loc *time.Location, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	clog := cron.PrintfLogger(logger)
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(clog),
			cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
		),
		runner: runner,
		logger: logger,
	}
}

// Schedule registers the ingestion cycle under spec, a five-field cron
// expression or a descriptor such as "@hourly" or "@every 1h30m".
func (s *Scheduler) Schedule(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runCycle); err != nil {
		return fmt.Errorf("register ingestion %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler. Cycles run with a context derived from
// ctx that Stop cancels.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.logger.Println("scheduler started")
}

// Stop stops the scheduler and waits for a running cycle, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		if s.cancel != nil {
			s.cancel()
		}
		return ctx.Err()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Println("scheduler stopped")
	return nil
}

// RunNow runs one cycle immediately, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) (*Cycle, error) {
	return s.runner.RunOnce(ctx)
}

// Next returns the next scheduled run, or the zero time if nothing is
// scheduled.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	next := entries[0].Next
	for _, e := range entries[1:] {
		if e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

func (s *Scheduler) runCycle() {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := s.runner.RunOnce(ctx); err != nil {
		s.logger.Printf("ingestion cycle: %v", err)
	}
}
