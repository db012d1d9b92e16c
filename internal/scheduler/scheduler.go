package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Jobs is the session maintenance the scheduler drives.
type Jobs interface {
	Prune() int
	RefreshReady(ctx context.Context, timeout time.Duration) int
}

// Scheduler periodically prunes idle sessions and refreshes ready ones.
type Scheduler struct {
	scheduler       *gocron.Scheduler
	jobs            Jobs
	pruneInterval   time.Duration
	refreshInterval time.Duration
	refreshTimeout  time.Duration
	logger          *slog.Logger
}

// New creates a new Scheduler. A refreshInterval of zero disables refreshing.
func New(jobs Jobs, pruneInterval, refreshInterval, refreshTimeout time.Duration, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:       s,
		jobs:            jobs,
		pruneInterval:   pruneInterval,
		refreshInterval: refreshInterval,
		refreshTimeout:  refreshTimeout,
		logger:          logger,
	}
}

// Start schedules the periodic jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	pruneEvery := s.pruneInterval
	if pruneEvery <= 0 {
		pruneEvery = time.Minute
	}

	if _, err := s.scheduler.Every(pruneEvery).WaitForSchedule().Do(s.prune); err != nil {
		return err
	}

	if s.refreshInterval > 0 {
		if _, err := s.scheduler.Every(s.refreshInterval).WaitForSchedule().Do(s.refresh); err != nil {
			return err
		}
	} else {
		s.logger.Info("scheduler: session refresh disabled")
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) prune() {
	n := s.jobs.Prune()
	s.logger.Debug("scheduler: prune job completed", "evicted", n)
}

func (s *Scheduler) refresh() {
	s.logger.Debug("scheduler: running session refresh job")
	n := s.jobs.RefreshReady(context.Background(), s.refreshTimeout)
	s.logger.Info("scheduler: completed session refresh job", "refreshed", n)
}
