package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

type TellSweeper interface {
	Sweep(ctx context.Context) int
}

type LedgerRoller interface {
	Rollover(ctx context.Context, today time.Time) bool
}

// Scheduler drives the periodic housekeeping: the tell expiry sweep and the
// day rollover check. Both are idempotent, so redundant ticks are harmless.
type Scheduler struct {
	scheduler *gocron.Scheduler
	tells     TellSweeper
	ledger    LedgerRoller
	logger    *slog.Logger
	interval  time.Duration
}

func NewScheduler(tells TellSweeper, ledger LedgerRoller, interval time.Duration, logger *slog.Logger) *Scheduler {
	scheduler := gocron.NewScheduler(time.UTC)

	return &Scheduler{
		scheduler: scheduler,
		tells:     tells,
		ledger:    ledger,
		logger:    logger,
		interval:  interval,
	}
}

func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler",
		"interval", s.interval.String(),
	)

	_, err := s.scheduler.Every(s.interval).Do(func() {
		ctx := context.Background()

		if removed := s.tells.Sweep(ctx); removed > 0 {
			s.logger.Info("expiry sweep finished", "removed", removed)
		}

		if s.ledger.Rollover(ctx, time.Now()) {
			s.logger.Info("scheduled rollover performed")
		}
	})

	if err != nil {
		s.logger.Error("failed to configure scheduler",
			"error", err,
		)

		return
	}

	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.scheduler.Stop()
}
