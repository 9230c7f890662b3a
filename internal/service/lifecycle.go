package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vietanh2810/raffle-api/internal/cache"
	"github.com/vietanh2810/raffle-api/internal/domain"
	"github.com/vietanh2810/raffle-api/internal/pkg/random"
	"github.com/vietanh2810/raffle-api/internal/repository"
)

var (
	ErrRaffleNotFound     = repository.ErrRaffleNotFound
	ErrTicketNotFound     = repository.ErrTicketNotFound
	ErrWinnerNotFound     = repository.ErrWinnerNotFound
	ErrWinnerExists       = repository.ErrWinnerExists
	ErrTicketWeekMismatch = errors.New("ticket does not belong to this raffle week")
)

const statsCacheKey = "raffle:stats"

type LifecycleRaffleRepository interface {
	Create(ctx context.Context, raffle domain.WeeklyRaffle) (domain.WeeklyRaffle, error)
	GetByWeek(ctx context.Context, weekNumber int) (domain.WeeklyRaffle, error)
	GetActive(ctx context.Context) (domain.WeeklyRaffle, error)
	FindDue(ctx context.Context, now time.Time) ([]domain.WeeklyRaffle, error)
	MaxWeekNumber(ctx context.Context) (int, error)
	Complete(ctx context.Context, weekNumber int, winnerAddress *string, winningTicketNumber *int) error
	CompleteWithWinner(ctx context.Context, winner domain.RaffleWinner, winningTicketNumber int) (domain.RaffleWinner, error)
	ListTicketsByWeek(ctx context.Context, weekNumber int) ([]domain.RaffleTicket, error)
	GetTicketByID(ctx context.Context, id uint) (domain.RaffleTicket, error)
	GetWinnerByWeek(ctx context.Context, weekNumber int) (domain.RaffleWinner, error)
	Stats(ctx context.Context) (domain.RaffleStats, error)
}

type LifecycleQuizRepository interface {
	CountAttempts(ctx context.Context) (int, error)
}

// LifecycleService owns the weekly state machine. All transitions go through
// storage-side conditional updates, so overlapping sweeps from several
// replicas compose safely.
type LifecycleService struct {
	repo         LifecycleRaffleRepository
	quizRepo     LifecycleQuizRepository
	cache        cache.Cache
	weekDuration time.Duration
	statsTTL     time.Duration
}

func NewLifecycleService(repo LifecycleRaffleRepository, quizRepo LifecycleQuizRepository, store cache.Cache, weekDuration, statsTTL time.Duration) *LifecycleService {
	if weekDuration == 0 {
		weekDuration = 7 * 24 * time.Hour
	}
	if statsTTL == 0 {
		statsTTL = 30 * time.Second
	}

	return &LifecycleService{
		repo:         repo,
		quizRepo:     quizRepo,
		cache:        store,
		weekDuration: weekDuration,
		statsTTL:     statsTTL,
	}
}

// ProcessDueRaffles closes every active raffle whose end time has passed and
// draws a winner for each. Losing the status compare-and-swap means another
// invocation already handled the raffle, so those are skipped silently.
func (s *LifecycleService) ProcessDueRaffles(ctx context.Context) (int, error) {
	due, err := s.repo.FindDue(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("s.repo.FindDue -> %w", err)
	}

	processed := 0
	for _, raffle := range due {
		if err := s.closeRaffle(ctx, raffle); err != nil {
			if errors.Is(err, repository.ErrRaffleConflict) {
				zap.L().Debug("raffle already closed by a concurrent sweep",
					zap.Int("week_number", raffle.WeekNumber))
				continue
			}

			return processed, fmt.Errorf("s.closeRaffle(week %d) -> %w", raffle.WeekNumber, err)
		}

		processed++
	}

	return processed, nil
}

func (s *LifecycleService) closeRaffle(ctx context.Context, raffle domain.WeeklyRaffle) error {
	tickets, err := s.repo.ListTicketsByWeek(ctx, raffle.WeekNumber)
	if err != nil {
		return fmt.Errorf("s.repo.ListTicketsByWeek -> %w", err)
	}

	if len(tickets) == 0 {
		if err := s.repo.Complete(ctx, raffle.WeekNumber, nil, nil); err != nil {
			return err
		}

		zap.L().Info("raffle closed with no participants",
			zap.Int("week_number", raffle.WeekNumber))
		return nil
	}

	winning := tickets[random.Intn(len(tickets))]

	return s.recordWinner(ctx, raffle, winning, domain.SelectionRandom, len(tickets))
}

// recordWinner assigns the winner in a single storage transaction, so a
// failure partway through leaves the raffle active for the next sweep instead
// of completed with no winner row.
func (s *LifecycleService) recordWinner(ctx context.Context, raffle domain.WeeklyRaffle, ticket domain.RaffleTicket, method domain.SelectionMethod, totalTickets int) error {
	winner := domain.RaffleWinner{
		WeekNumber:           raffle.WeekNumber,
		WinnerAddress:        ticket.OwnerAddress,
		WinningTicketID:      ticket.ID,
		PrizeAmount:          raffle.PrizePool,
		TotalTicketsInRaffle: totalTickets,
		SelectionMethod:      method,
		SelectionTimestamp:   time.Now(),
	}

	if _, err := s.repo.CompleteWithWinner(ctx, winner, ticket.TicketNumber); err != nil {
		if errors.Is(err, repository.ErrWinnerExists) {
			return repository.ErrRaffleConflict
		}

		return err
	}

	zap.L().Info("raffle winner selected",
		zap.Int("week_number", raffle.WeekNumber),
		zap.String("winner_address", ticket.OwnerAddress),
		zap.Int("winning_ticket_number", ticket.TicketNumber),
		zap.String("selection_method", string(method)),
		zap.Int("total_tickets", totalTickets),
	)

	return nil
}

// EnsureNextRaffleExists opens the next week's raffle if no scheduled or
// active raffle exists. The unique week number turns a creation race into a
// harmless no-op on the loser.
func (s *LifecycleService) EnsureNextRaffleExists(ctx context.Context) (domain.WeeklyRaffle, error) {
	active, err := s.repo.GetActive(ctx)
	if err == nil {
		return active, nil
	}
	if !errors.Is(err, repository.ErrRaffleNotFound) {
		return domain.WeeklyRaffle{}, fmt.Errorf("s.repo.GetActive -> %w", err)
	}

	maxWeek, err := s.repo.MaxWeekNumber(ctx)
	if err != nil {
		return domain.WeeklyRaffle{}, fmt.Errorf("s.repo.MaxWeekNumber -> %w", err)
	}

	now := time.Now()
	created, err := s.repo.Create(ctx, domain.WeeklyRaffle{
		WeekNumber: maxWeek + 1,
		Status:     domain.RaffleActive,
		StartAt:    now,
		EndAt:      now.Add(s.weekDuration),
	})
	if err != nil {
		if errors.Is(err, repository.ErrRaffleWeekExists) {
			// Another replica created it between our read and write.
			return s.repo.GetByWeek(ctx, maxWeek+1)
		}

		return domain.WeeklyRaffle{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	zap.L().Info("opened next raffle",
		zap.Int("week_number", created.WeekNumber),
		zap.Time("end_at", created.EndAt),
	)

	return created, nil
}

// SelectWinnerManually is the operator override. It walks the same
// winner-assignment path as the random draw and respects the
// one-winner-per-week invariant.
func (s *LifecycleService) SelectWinnerManually(ctx context.Context, weekNumber int, ticketID uint) (domain.RaffleWinner, error) {
	ticket, err := s.repo.GetTicketByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return domain.RaffleWinner{}, ErrTicketNotFound
		}

		return domain.RaffleWinner{}, fmt.Errorf("s.repo.GetTicketByID -> %w", err)
	}

	if ticket.WeekNumber != weekNumber {
		return domain.RaffleWinner{}, ErrTicketWeekMismatch
	}

	raffle, err := s.repo.GetByWeek(ctx, weekNumber)
	if err != nil {
		if errors.Is(err, repository.ErrRaffleNotFound) {
			return domain.RaffleWinner{}, ErrRaffleNotFound
		}

		return domain.RaffleWinner{}, fmt.Errorf("s.repo.GetByWeek -> %w", err)
	}

	tickets, err := s.repo.ListTicketsByWeek(ctx, weekNumber)
	if err != nil {
		return domain.RaffleWinner{}, fmt.Errorf("s.repo.ListTicketsByWeek -> %w", err)
	}

	if err := s.recordWinner(ctx, raffle, ticket, domain.SelectionManual, len(tickets)); err != nil {
		if errors.Is(err, repository.ErrRaffleConflict) {
			return domain.RaffleWinner{}, ErrWinnerExists
		}

		return domain.RaffleWinner{}, err
	}

	return s.repo.GetWinnerByWeek(ctx, weekNumber)
}

// CurrentRaffle returns the active raffle.
func (s *LifecycleService) CurrentRaffle(ctx context.Context) (domain.WeeklyRaffle, error) {
	raffle, err := s.repo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrRaffleNotFound) {
			return domain.WeeklyRaffle{}, ErrNoActiveRaffle
		}

		return domain.WeeklyRaffle{}, fmt.Errorf("s.repo.GetActive -> %w", err)
	}

	return raffle, nil
}

// WinnerByWeek returns the recorded winner snapshot for a completed week.
func (s *LifecycleService) WinnerByWeek(ctx context.Context, weekNumber int) (domain.RaffleWinner, error) {
	winner, err := s.repo.GetWinnerByWeek(ctx, weekNumber)
	if err != nil {
		if errors.Is(err, repository.ErrWinnerNotFound) {
			return domain.RaffleWinner{}, ErrWinnerNotFound
		}

		return domain.RaffleWinner{}, fmt.Errorf("s.repo.GetWinnerByWeek -> %w", err)
	}

	return winner, nil
}

// Stats aggregates operator-facing counts, cached briefly since it is served
// on every dashboard refresh.
func (s *LifecycleService) Stats(ctx context.Context) (domain.RaffleStats, error) {
	if cached, ok, err := s.cache.Get(ctx, statsCacheKey); err == nil && ok {
		var stats domain.RaffleStats
		if err = json.Unmarshal([]byte(cached), &stats); err == nil {
			return stats, nil
		}
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return domain.RaffleStats{}, fmt.Errorf("s.repo.Stats -> %w", err)
	}

	attempts, err := s.quizRepo.CountAttempts(ctx)
	if err != nil {
		return domain.RaffleStats{}, fmt.Errorf("s.quizRepo.CountAttempts -> %w", err)
	}
	stats.TotalAttempts = attempts

	if encoded, err := json.Marshal(stats); err == nil {
		if err = s.cache.Set(ctx, statsCacheKey, string(encoded), s.statsTTL); err != nil {
			zap.L().Warn("failed to write stats cache", zap.Error(err))
		}
	}

	return stats, nil
}
