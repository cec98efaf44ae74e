package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/outage-feed-etl/internal/domain"
	"github.com/couchcryptid/outage-feed-etl/internal/observability"
)

// Runner executes one batch pass.
type Runner interface {
	Run(ctx context.Context) (*domain.Payload, *Diagnostics, error)
}

// Scheduler invokes a Runner immediately and then on every interval tick.
// Runs never overlap: a tick that arrives during a run is dropped.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	once     bool
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewScheduler creates a Scheduler. With once set, Start performs a single run.
func NewScheduler(runner Runner, interval time.Duration, once bool, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		once:     once,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// Start blocks until ctx is cancelled. In single-run mode it returns the
// run's error instead.
func (s *Scheduler) Start(ctx context.Context) error {
	s.metrics.SchedulerLive.Set(1)
	defer s.metrics.SchedulerLive.Set(0)

	if s.once {
		_, _, err := s.runner.Run(ctx)
		return err
	}

	s.logger.Info("scheduler started", "interval", s.interval)
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, _, err := s.runner.Run(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("run failed", "error", err)
	}
}
