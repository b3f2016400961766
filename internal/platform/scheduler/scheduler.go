// Package scheduler runs the periodic notification cleanup sweep. The sweep
// itself is predicate-guarded and idempotent, so overlapping runs are safe.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Cleaner is the sweep the scheduler triggers.
type Cleaner interface {
	Cleanup(ctx context.Context) error
}

// CleanupScheduler triggers Cleanup on a cron spec.
type CleanupScheduler struct {
	engine  *cron.Cron
	cleaner Cleaner
	logger  *slog.Logger
	spec    string
	timeout time.Duration
}

func New(cleaner Cleaner, spec string, logger *slog.Logger) *CleanupScheduler {
	return &CleanupScheduler{
		engine:  cron.New(),
		cleaner: cleaner,
		logger:  logger,
		spec:    spec,
		timeout: 5 * time.Minute,
	}
}

// Start registers the cleanup job and starts the cron engine.
func (s *CleanupScheduler) Start() error {
	_, err := s.engine.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.cleaner.Cleanup(ctx); err != nil {
			s.logger.Error("scheduled notification cleanup failed", "error", err.Error())
		}
	})
	if err != nil {
		return err
	}
	s.engine.Start()
	s.logger.Info("cleanup scheduler started", "spec", s.spec)
	return nil
}

// Stop stops the engine and waits for a running sweep to finish.
func (s *CleanupScheduler) Stop() {
	ctx := s.engine.Stop()
	<-ctx.Done()
	s.logger.Info("cleanup scheduler stopped")
}
