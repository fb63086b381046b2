// Package scheduler runs housekeeping jobs on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var ErrAlreadyRunning = errors.New("scheduler already running")

// Job is one named unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(context.Context)
}

type Scheduler struct {
	job    Job
	logger *slog.Logger

	running atomic.Bool
	ticks   atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(job Job) (*Scheduler, error) {
	if job.Interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if job.Run == nil {
		return nil, errors.New("run func must not be nil")
	}
	if job.Name == "" {
		job.Name = "job"
	}
	return &Scheduler{
		job:    job,
		logger: slog.Default().With("job", job.Name),
	}, nil
}

// Start runs the job in the background until Stop is called or parent is
// cancelled. The first run happens after one interval.
func (s *Scheduler) Start(parent context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)

	go func() {
		defer close(s.done)
		defer s.running.Store(false)

		ticker := time.NewTicker(s.job.Interval)
		defer ticker.Stop()

		s.logger.Info("scheduler started", "interval", s.job.Interval.String())

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("scheduler stopping")
				return
			case <-ticker.C:
				s.safeRun(ctx)
			}
		}
	}()

	return nil
}

// Stop cancels the loop and waits for an in-flight run to return. It
// reports whether the scheduler was running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return false
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	return true
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// Ticks is the number of completed runs, including ones that panicked.
func (s *Scheduler) Ticks() int64 {
	return s.ticks.Load()
}

func (s *Scheduler) safeRun(ctx context.Context) {
	defer s.ticks.Add(1)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler run panic recovered", "panic", r)
		}
	}()

	start := time.Now()
	s.job.Run(ctx)
	s.logger.Debug("scheduler run completed", "duration_ms", time.Since(start).Milliseconds())
}
