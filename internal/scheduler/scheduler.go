// Package scheduler triggers the daily collection and the stale channel cleanup on cron specs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/config"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/service/collection"
)

const cleanupTimeout = 5 * time.Minute

// Collector runs one collection pipeline pass
type Collector interface {
	Run(ctx context.Context) (*collection.RunSummary, error)
}

// Cleaner removes abandoned channel analyses
type Cleaner interface {
	CleanupStale(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler owns the cron runner and the jobs registered on it
type Scheduler struct {
	cron      *cron.Cron
	collector Collector
	cleaner   Cleaner
	logger    *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New registers the collection and cleanup jobs. Jobs skip a tick while the previous run is still going.
func New(cfg config.SchedulerConfig, collector Collector, cleaner Cleaner, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tz := cfg.Timezone
	if tz == "" {
		tz = "Asia/Seoul"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone %q: %w", tz, err)
	}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		collector: collector,
		cleaner:   cleaner,
		logger:    logger.With("component", "scheduler"),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if collector != nil && cfg.CollectionSpec != "" {
		if _, err := s.cron.AddFunc(cfg.CollectionSpec, s.runCollection); err != nil {
			return nil, fmt.Errorf("collection spec %q: %w", cfg.CollectionSpec, err)
		}
	}
	if cleaner != nil && cfg.CleanupSpec != "" {
		if _, err := s.cron.AddFunc(cfg.CleanupSpec, s.runCleanup); err != nil {
			return nil, fmt.Errorf("cleanup spec %q: %w", cfg.CleanupSpec, err)
		}
	}
	return s, nil
}

// Start begins firing jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("job scheduled", "entry", e.ID, "next", e.Next)
	}
}

// Stop stops new ticks, cancels running jobs and waits for them up to timeout
func (s *Scheduler) Stop(timeout time.Duration) error {
	done := s.cron.Stop()

	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("scheduler did not stop within %s", timeout)
	}
}

// Entries reports how many jobs are registered
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) runCollection() {
	ctx := s.jobContext()
	if ctx.Err() != nil {
		return
	}
	s.logger.Info("collection triggered")

	summary, err := s.collector.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled collection failed", "error", err)
		return
	}
	s.logger.Info("scheduled collection finished",
		"run_id", summary.RunID,
		"persisted", summary.Persisted,
		"failed", summary.Failed,
		"rankings", summary.Rankings,
		"duration", summary.Duration,
	)
}

func (s *Scheduler) runCleanup() {
	parent := s.jobContext()
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, cleanupTimeout)
	defer cancel()

	deleted, err := s.cleaner.CleanupStale(ctx, time.Now())
	if err != nil {
		s.logger.Error("stale channel cleanup failed", "error", err)
		return
	}
	s.logger.Debug("stale channel cleanup finished", "deleted", deleted)
}
