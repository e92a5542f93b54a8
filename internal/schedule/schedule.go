// Package schedule runs the periodic background jobs that keep a live
// index healthy without user action: an embedder health probe that
// attempts recovery from degraded (keyword-only) mode, and a vector-index
// tombstone compaction sweep.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	probeSpec    = "@every 30s"
	compactSpec  = "@every 1m"
	probeTimeout = 10 * time.Second
)

// HealthProber is satisfied by embed.Coordinator: a successful Probe lifts
// the coordinator back out of keyword-only mode.
type HealthProber interface {
	Probe(ctx context.Context) error
}

// VectorCompactor is satisfied by store.HNSWIndex: ShouldRebuild reports
// whether the tombstone fraction has crossed its threshold, and Rebuild
// performs the compaction.
type VectorCompactor interface {
	ShouldRebuild() bool
	Rebuild() int
}

// Scheduler owns the cron engine driving both background jobs. Grounded on
// the reference scheduler.Scheduler lifecycle shape (construct with
// dependencies + logger, Start(ctx)/Stop()), but driven by
// robfig/cron/v3's own engine directly rather than a hand-rolled
// ticker-per-job runner, since both of this scheduler's jobs are fixed
// intervals with no per-job configuration to interpret.
type Scheduler struct {
	cron    *cron.Cron
	prober  HealthProber
	vectors VectorCompactor
	logger  *slog.Logger
}

// New builds a Scheduler. Either dependency may be nil, in which case the
// corresponding job is skipped.
func New(prober HealthProber, vectors VectorCompactor, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		prober:  prober,
		vectors: vectors,
		logger:  logger.With("component", "schedule"),
	}
}

// Start registers and starts both background jobs. The returned error is
// only non-nil if a cron expression fails to parse, which can't happen
// with the fixed expressions above; callers can safely ignore it in
// practice but it's still surfaced for completeness.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.prober != nil {
		if _, err := s.cron.AddFunc(probeSpec, func() { s.runProbe(ctx) }); err != nil {
			return err
		}
	}
	if s.vectors != nil {
		if _, err := s.cron.AddFunc(compactSpec, s.runCompaction); err != nil {
			return err
		}
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron engine and blocks until any in-flight job finishes
// or ctx is done, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) runProbe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := s.prober.Probe(probeCtx); err != nil {
		s.logger.Debug("embedder health probe failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("embedder health probe succeeded")
}

func (s *Scheduler) runCompaction() {
	if !s.vectors.ShouldRebuild() {
		return
	}
	n := s.vectors.Rebuild()
	s.logger.Info("compacted vector index tombstones", slog.Int("count", n))
}
