package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Sweeper runs a job on a fixed interval until stopped.
type Sweeper struct {
	name     string
	interval time.Duration
	job      func(context.Context) error
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSweeper(name string, interval time.Duration, job func(context.Context) error, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{name: name, interval: interval, job: job, logger: logger}
}

// Start begins the loop. Returns an error if already running.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("%s is already running", s.name)
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.runLoop(ctx, s.stopCh, s.doneCh)

	s.logger.InfoContext(ctx, "Sweeper started", "name", s.name, "interval", s.interval)
	return nil
}

// Stop signals the loop and waits for the current run to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		s.logger.InfoContext(ctx, "Sweeper stopped", "name", s.name)
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Sweeper stop timed out", "name", s.name)
		return ctx.Err()
	}
}

func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sweeper) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.job(ctx); err != nil {
				s.logger.ErrorContext(ctx, "Sweep failed", "name", s.name, "error", err)
			}
		}
	}
}
