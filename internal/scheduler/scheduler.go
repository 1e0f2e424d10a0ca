// Package scheduler runs periodic jobs, each on its own ticker.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run. Zero means the run is bounded only by the
	// scheduler's context.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

type Scheduler struct {
	jobs []Job
	wg   sync.WaitGroup
}

func New(jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs}
}

// Start launches every job. Each runs once immediately and then on every
// tick until ctx is cancelled. A tick that arrives while the previous run is
// still going is skipped.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		if job.Interval <= 0 || job.Run == nil {
			slog.Warn("[Scheduler] Job disabled", slog.String("job", job.Name))
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop(ctx, job)
		}()
	}
}

// Wait blocks until every job loop and its in-flight run have returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	var (
		running atomic.Bool
		runs    sync.WaitGroup
	)
	defer runs.Wait()

	trigger := func() {
		if !running.CompareAndSwap(false, true) {
			slog.Warn("[Scheduler] Previous run still in progress, skipping tick",
				slog.String("job", job.Name))
			return
		}
		runs.Add(1)
		go func() {
			defer runs.Done()
			defer running.Store(false)
			runOnce(ctx, job)
		}()
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	trigger()
	for {
		select {
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping job", slog.String("job", job.Name))
			return
		case <-ticker.C:
			trigger()
		}
	}
}

func runOnce(ctx context.Context, job Job) {
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("[Scheduler] Job panicked",
				slog.String("job", job.Name),
				slog.Any("panic", r))
		}
	}()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		slog.Error("[Scheduler] Job failed",
			slog.String("job", job.Name),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return
	}
	slog.Debug("[Scheduler] Job finished",
		slog.String("job", job.Name),
		slog.Duration("duration", time.Since(start)))
}
