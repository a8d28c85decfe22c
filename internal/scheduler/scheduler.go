// Package scheduler runs the periodic listing maintenance jobs: the retention
// sweep and the pending sync pass.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sinyoro/market-service/internal/platform/logger"
)

// Jobs is the part of the listing usecase the scheduler drives.
type Jobs interface {
	ExpireListings(ctx context.Context, now time.Time) ([]string, error)
	SyncPending(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron           *cron.Cron
	jobs           Jobs
	logger         *logger.Logger
	expirySchedule string
	syncSchedule   string
	now            func() time.Time
}

// New builds a scheduler. An empty schedule disables that job.
func New(jobs Jobs, expirySchedule, syncSchedule string, log *logger.Logger) *Scheduler {
	log = log.Named("scheduler")
	cl := cronLogger{log.Sugar()}
	return &Scheduler{
		cron:           cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		jobs:           jobs,
		logger:         log,
		expirySchedule: expirySchedule,
		syncSchedule:   syncSchedule,
		now:            time.Now,
	}
}

// Start registers the jobs, runs one expiry sweep immediately so stale
// listings never outlive a restart, and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.expirySchedule != "" {
		if _, err := s.cron.AddFunc(s.expirySchedule, func() { s.runExpiry(ctx) }); err != nil {
			return fmt.Errorf("cron.AddFunc expiry %q: %w", s.expirySchedule, err)
		}
	}
	if s.syncSchedule != "" {
		if _, err := s.cron.AddFunc(s.syncSchedule, func() { s.runSync(ctx) }); err != nil {
			return fmt.Errorf("cron.AddFunc sync %q: %w", s.syncSchedule, err)
		}
	}

	if s.expirySchedule != "" {
		s.runExpiry(ctx)
	}
	s.cron.Start()
	s.logger.Info("Scheduler started",
		zap.String("expiry_schedule", s.expirySchedule),
		zap.String("sync_schedule", s.syncSchedule))
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out; jobs still running")
	}
}

func (s *Scheduler) runExpiry(ctx context.Context) {
	removed, err := s.jobs.ExpireListings(ctx, s.now())
	if err != nil {
		s.logger.Error("Scheduler.runExpiry: sweep failed", zap.Error(err))
		return
	}
	s.logger.Debug("Scheduler.runExpiry: sweep done", zap.Int("removed", len(removed)))
}

func (s *Scheduler) runSync(ctx context.Context) {
	n, err := s.jobs.SyncPending(ctx)
	if err != nil {
		s.logger.Error("Scheduler.runSync: sync pass failed", zap.Int("synced", n), zap.Error(err))
		return
	}
	s.logger.Debug("Scheduler.runSync: sync pass done", zap.Int("synced", n))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
