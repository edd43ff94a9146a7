// Package scheduler runs the periodic fleet balance refresh. Uses
// robfig/cron for schedule parsing and execution; refresh results land in
// the session's balance cache so the copilot answers balance questions
// without a fresh round-trip.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// refreshTimeout bounds one refresh sweep across the fleet.
const refreshTimeout = 2 * time.Minute

// RefreshFunc performs one balance sweep across the fleet.
type RefreshFunc func(ctx context.Context) error

// Scheduler drives the refresh on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	refresh RefreshFunc
	running bool
	logger  *slog.Logger
	mu      sync.Mutex
}

// New creates a scheduler around the refresh function.
func New(refresh RefreshFunc, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		refresh: refresh,
		logger:  logger.With("component", "scheduler"),
	}
}

// Start registers the schedule and begins execution. Overlapping runs are
// skipped: a sweep that fires while the previous one is still active is a
// no-op.
func (s *Scheduler) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, s.run)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("balance refresh scheduled", "schedule", schedule)
	return nil
}

func (s *Scheduler) run() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Debug("refresh already running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	start := time.Now()
	if err := s.refresh(ctx); err != nil {
		s.logger.Warn("balance refresh failed", "error", err)
		return
	}
	s.logger.Debug("balance refresh complete", "elapsed_ms", time.Since(start).Milliseconds())
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
