package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"GazetteScanner/internal/domain"
	"GazetteScanner/internal/ports"
)

// Scheduler wires the interval driver with the runner for monitor mode.
type Scheduler struct {
	driver     ports.Scheduler
	runner     *Runner
	interval   time.Duration
	batchPause time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewScheduler re-runs every interval, or after batchPause while a batch is pending.
func NewScheduler(driver ports.Scheduler, runner *Runner, interval, batchPause time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		driver:     driver,
		runner:     runner,
		interval:   interval,
		batchPause: batchPause,
		logger:     log,
		done:       make(chan struct{}),
	}
}

// Start registers the runner with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	return s.driver.Start(ctx, func(time.Time) time.Duration {
		return s.tick(ctx)
	})
}

// Done is closed when a configuration error halts the loop.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Err returns the configuration error that halted the loop, if any.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Scheduler) tick(ctx context.Context) time.Duration {
	report, err := s.runner.RunOnce(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			s.halt(err)
			return s.interval
		}
		if s.logger != nil {
			s.logger.Error("capture run failed", "error", err)
		}
		return s.interval
	}
	if report.Next.NextBatchPending {
		return s.batchPause
	}
	return s.interval
}

func (s *Scheduler) halt(err error) {
	if s.logger != nil {
		s.logger.Error("configuration error, stopping monitor", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	s.err = err
	close(s.done)
	if s.cancel != nil {
		s.cancel()
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		defer cancel()
	}

	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
