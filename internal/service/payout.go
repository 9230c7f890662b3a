package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vietanh2810/raffle-api/internal/domain"
	"github.com/vietanh2810/raffle-api/internal/repository"
)

var (
	ErrPayoutFailed        = errors.New("prize transfer failed")
	ErrPrizeAlreadyClaimed = repository.ErrPrizeAlreadyClaimed
)

// PrizeSender submits a prize transfer on chain and returns the transaction
// hash.
type PrizeSender interface {
	Send(ctx context.Context, to string, amount float64) (string, error)
}

type PayoutRaffleRepository interface {
	GetWinnerByWeek(ctx context.Context, weekNumber int) (domain.RaffleWinner, error)
	ListUnpaidWinners(ctx context.Context) ([]domain.RaffleWinner, error)
	MarkPrizeDistributed(ctx context.Context, winnerID uint, distributionHash string) error
}

// PayoutService pushes prizes to winners. Payouts are retried until the
// claimed flag flips; a failed transfer leaves the winner row untouched so the
// next sweep picks it up again.
type PayoutService struct {
	repo   PayoutRaffleRepository
	sender PrizeSender
}

func NewPayoutService(repo PayoutRaffleRepository, sender PrizeSender) *PayoutService {
	return &PayoutService{
		repo:   repo,
		sender: sender,
	}
}

// DistributePrize sends the prize for one winner record. Zero-prize weeks are
// marked claimed without a transfer.
func (s *PayoutService) DistributePrize(ctx context.Context, winner domain.RaffleWinner) error {
	if winner.PrizeClaimed {
		return nil
	}

	hash := ""
	if winner.PrizeAmount > 0 {
		sent, err := s.sender.Send(ctx, winner.WinnerAddress, winner.PrizeAmount)
		if err != nil {
			zap.L().Error("prize transfer failed",
				zap.Int("week_number", winner.WeekNumber),
				zap.String("winner_address", winner.WinnerAddress),
				zap.Float64("prize_amount", winner.PrizeAmount),
				zap.Error(err),
			)
			return fmt.Errorf("%w: %v", ErrPayoutFailed, err)
		}
		hash = sent
	}

	if err := s.repo.MarkPrizeDistributed(ctx, winner.ID, hash); err != nil {
		if errors.Is(err, repository.ErrPrizeAlreadyClaimed) {
			// A concurrent payout won; the transfer above is the duplicate.
			// Log loudly so an operator can reconcile the double send.
			zap.L().Error("prize marked claimed by a concurrent payout",
				zap.Int("week_number", winner.WeekNumber),
				zap.String("distribution_hash", hash))
			return nil
		}

		return fmt.Errorf("s.repo.MarkPrizeDistributed -> %w", err)
	}

	zap.L().Info("prize distributed",
		zap.Int("week_number", winner.WeekNumber),
		zap.String("winner_address", winner.WinnerAddress),
		zap.Float64("prize_amount", winner.PrizeAmount),
		zap.String("distribution_hash", hash),
	)

	return nil
}

// DistributeForWeek is the operator-triggered payout for a single week.
func (s *PayoutService) DistributeForWeek(ctx context.Context, weekNumber int) (domain.RaffleWinner, error) {
	winner, err := s.repo.GetWinnerByWeek(ctx, weekNumber)
	if err != nil {
		if errors.Is(err, repository.ErrWinnerNotFound) {
			return domain.RaffleWinner{}, ErrWinnerNotFound
		}

		return domain.RaffleWinner{}, fmt.Errorf("s.repo.GetWinnerByWeek -> %w", err)
	}

	if winner.PrizeClaimed {
		return winner, ErrPrizeAlreadyClaimed
	}

	if err := s.DistributePrize(ctx, winner); err != nil {
		return domain.RaffleWinner{}, err
	}

	return s.repo.GetWinnerByWeek(ctx, weekNumber)
}

// RetryUnclaimed re-attempts every pending payout. Individual failures are
// logged and skipped so one stuck winner does not block the rest.
func (s *PayoutService) RetryUnclaimed(ctx context.Context) (int, error) {
	winners, err := s.repo.ListUnpaidWinners(ctx)
	if err != nil {
		return 0, fmt.Errorf("s.repo.ListUnpaidWinners -> %w", err)
	}

	paid := 0
	for _, winner := range winners {
		if err := s.DistributePrize(ctx, winner); err != nil {
			continue
		}
		paid++
	}

	return paid, nil
}
