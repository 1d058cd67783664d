package comps

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/fliplens-comps/internal/metrics"
)

const pruneTimeout = time.Minute

// SnapshotPruner deletes snapshots created before a cutoff.
type SnapshotPruner interface {
	PruneSnapshots(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler runs housekeeping on a fixed cadence: purging stale cache
// entries and pruning snapshot history past the retention window.
type Scheduler struct {
	cron      *cron.Cron
	engine    *Engine
	pruner    SnapshotPruner
	retention time.Duration
	nowFunc   func() time.Time
	log       *slog.Logger
}

// SchedulerConfig configures NewScheduler. A nil Pruner or non-positive
// PruneInterval disables snapshot pruning; a non-positive PurgeInterval
// disables cache purging.
type SchedulerConfig struct {
	Pruner        SnapshotPruner
	Retention     time.Duration
	PruneInterval time.Duration
	PurgeInterval time.Duration
}

// NewScheduler creates a Scheduler for eng.
func NewScheduler(eng *Engine, cfg SchedulerConfig, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}

	s := &Scheduler{
		cron:      cron.New(),
		engine:    eng,
		pruner:    cfg.Pruner,
		retention: cfg.Retention,
		nowFunc:   time.Now,
		log:       log,
	}

	if cfg.Pruner != nil && cfg.PruneInterval > 0 {
		if cfg.Retention <= 0 {
			return nil, errors.New("snapshot retention must be positive")
		}
		if _, err := s.cron.AddFunc("@every "+cfg.PruneInterval.String(), s.runPrune); err != nil {
			return nil, err
		}
	}

	if eng != nil && cfg.PurgeInterval > 0 {
		if _, err := s.cron.AddFunc("@every "+cfg.PurgeInterval.String(), s.runPurge); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Start begins running scheduled tasks.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started", "jobs", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// PruneNow deletes snapshots older than the retention window.
func (s *Scheduler) PruneNow(ctx context.Context) (int64, error) {
	if s.pruner == nil {
		return 0, nil
	}
	n, err := s.pruner.PruneSnapshots(ctx, s.nowFunc().Add(-s.retention))
	if err != nil {
		return 0, err
	}
	metrics.SnapshotsPrunedTotal.Add(float64(n))
	return n, nil
}

func (s *Scheduler) runPrune() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	n, err := s.PruneNow(ctx)
	if err != nil {
		s.log.Error("scheduled snapshot prune failed", "error", err)
		return
	}
	s.log.Info("scheduled snapshot prune complete", "removed", n)
}

func (s *Scheduler) runPurge() {
	n := s.engine.PurgeCache()
	s.log.Debug("scheduled cache purge complete", "removed", n)
}
