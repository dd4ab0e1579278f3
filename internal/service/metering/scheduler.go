package metering

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/homewatt/homewatt/internal/domain"
	"github.com/homewatt/homewatt/internal/ports"
)

// Scheduler is the periodic trigger: on every tick it re-runs the
// pipeline for each account with at least one live session. The session
// registry is queried directly; accounts without sessions simply receive
// no triggers.
type Scheduler struct {
	registry ports.SessionRegistry
	svc      ports.MeteringService
	interval time.Duration
	log      *zap.Logger
}

func NewScheduler(registry ports.SessionRegistry, svc ports.MeteringService, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Scheduler{
		registry: registry,
		svc:      svc,
		interval: interval,
		log:      log,
	}
}

// Run blocks until ctx is cancelled. Each account gets its own pipeline
// goroutine; concurrency lives between accounts, never inside one run.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Metering scheduler started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Metering scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	accounts := s.registry.ActiveAccounts()
	if len(accounts) == 0 {
		return
	}

	s.log.Debug("Re-triggering live metering", zap.Int("accounts", len(accounts)))

	for _, accountID := range accounts {
		go func(id int64) {
			if err := s.svc.ComputeAndPublish(ctx, id); err != nil &&
				!errors.Is(err, domain.ErrComputationInFlight) {
				s.log.Warn("Scheduled metering run failed",
					zap.Int64("account_id", id), zap.Error(err))
			}
		}(accountID)
	}
}
