// Package scheduler runs the hourly scrape and the daily article fetch on
// cron schedules in UTC, replacing an external cron trigger.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler owns a cron runner. Each job is skipped if its previous run is
// still in progress.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// New creates a Scheduler. Specs are standard five-field cron expressions
// (or descriptors such as @hourly) evaluated in UTC.
func New(logger *slog.Logger) *Scheduler {
	logger = logger.With("component", "scheduler")
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Add registers job under name on spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		s.logger.Info("job started", "job", name)
		if err := job(s.ctx); err != nil {
			s.logger.Error("job failed", "job", name, "duration", time.Since(start), "error", err)
			return
		}
		s.logger.Info("job finished", "job", name, "duration", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	return nil
}

// Next reports when each registered job will next run.
func (s *Scheduler) Next() []time.Time {
	entries := s.cron.Entries()
	next := make([]time.Time, len(entries))
	for i, e := range entries {
		next[i] = e.Schedule.Next(time.Now().UTC())
	}
	return next
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits for
// running jobs to return. Jobs see a context that is cancelled on shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))

	<-ctx.Done()
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
