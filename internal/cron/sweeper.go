// Package cron runs the periodic raffle sweep: close due raffles, open the
// next week, and retry pending payouts.
package cron

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vietanh2810/raffle-api/internal/service"
)

type Sweeper struct {
	lifecycle *service.LifecycleService
	payout    *service.PayoutService
	interval  time.Duration
}

func NewSweeper(lifecycle *service.LifecycleService, payout *service.PayoutService, interval time.Duration) *Sweeper {
	if interval == 0 {
		interval = time.Hour
	}

	return &Sweeper{
		lifecycle: lifecycle,
		payout:    payout,
		interval:  interval,
	}
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	processed, err := s.lifecycle.ProcessDueRaffles(ctx)
	if err != nil {
		zap.L().Error("failed to process due raffles", zap.Error(err))
	} else if processed > 0 {
		zap.L().Info("processed due raffles", zap.Int("count", processed))
	}

	if _, err := s.lifecycle.EnsureNextRaffleExists(ctx); err != nil {
		zap.L().Error("failed to ensure next raffle", zap.Error(err))
	}

	paid, err := s.payout.RetryUnclaimed(ctx)
	if err != nil {
		zap.L().Error("failed to retry pending payouts", zap.Error(err))
	} else if paid > 0 {
		zap.L().Info("distributed pending prizes", zap.Int("count", paid))
	}
}
