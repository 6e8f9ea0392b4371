package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named unit of scheduled work.
type Job struct {
	Name string
	Spec string // cron expression
	Run  func(ctx context.Context)
}

// Scheduler wraps a cron runner. Each job carries a reentrancy guard: a
// trigger arriving while the previous run is still active is dropped, never
// run concurrently with itself.
type Scheduler struct {
	cron *cron.Cron
}

func New(timezone string) *Scheduler {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		slog.Warn("invalid scheduler timezone, using UTC", "timezone", timezone, "error", err)
		location = time.UTC
	}

	return &Scheduler{
		cron: cron.New(cron.WithLocation(location)),
	}
}

// Register adds a job. Returns an error for malformed cron expressions.
func (s *Scheduler) Register(job Job) error {
	var running atomic.Bool

	_, err := s.cron.AddFunc(job.Spec, func() {
		if !running.CompareAndSwap(false, true) {
			slog.Warn("scheduled job still running, skipping trigger", "job", job.Name)
			return
		}
		defer running.Store(false)

		start := time.Now()
		slog.Info("scheduled job started", "job", job.Name)
		job.Run(context.Background())
		slog.Info("scheduled job finished", "job", job.Name, "duration_ms", time.Since(start).Milliseconds())
	})
	if err != nil {
		return err
	}

	slog.Info("scheduled job registered", "job", job.Name, "spec", job.Spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops triggering new runs and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
