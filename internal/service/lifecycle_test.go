package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/raffle-api/internal/cache"
	"github.com/vietanh2810/raffle-api/internal/domain"
	"github.com/vietanh2810/raffle-api/internal/repository"
)

func newLifecycleService(raffleRepo *repository.RaffleRepository, quizRepo *repository.QuizRepository) *LifecycleService {
	return NewLifecycleService(raffleRepo, quizRepo, cache.NewMemoryCache(), 7*24*time.Hour, time.Second)
}

// flakyWinnerRepository fails the winner assignment a fixed number of times
// before delegating, like a dropped database connection would.
type flakyWinnerRepository struct {
	LifecycleRaffleRepository
	failures int
}

func (r *flakyWinnerRepository) CompleteWithWinner(ctx context.Context, winner domain.RaffleWinner, winningTicketNumber int) (domain.RaffleWinner, error) {
	if r.failures > 0 {
		r.failures--
		return domain.RaffleWinner{}, errors.New("connection reset by peer")
	}

	return r.LifecycleRaffleRepository.CompleteWithWinner(ctx, winner, winningTicketNumber)
}

// lostCreateRaceRepository makes every Create look like another replica wrote
// the same week first.
type lostCreateRaceRepository struct {
	LifecycleRaffleRepository
}

func (r *lostCreateRaceRepository) Create(ctx context.Context, raffle domain.WeeklyRaffle) (domain.WeeklyRaffle, error) {
	if _, err := r.LifecycleRaffleRepository.Create(ctx, raffle); err != nil {
		return domain.WeeklyRaffle{}, err
	}

	return domain.WeeklyRaffle{}, repository.ErrRaffleWeekExists
}

func mintTestTickets(t *testing.T, raffleRepo *repository.RaffleRepository, quizRepo *repository.QuizRepository, weekNumber, count int) []domain.RaffleTicket {
	t.Helper()

	svc := NewTicketService(raffleRepo, quizRepo, &stubVerifier{})
	question := seedQuestion(t, quizRepo, weekNumber, "proof of stake")

	tickets := make([]domain.RaffleTicket, 0, count)
	for i := 0; i < count; i++ {
		user := "0xabc00000000000000000000000000000000000" + string([]byte{hexDigit(byte(i >> 4)), hexDigit(byte(i & 0xf))})
		seedCorrectAttempt(t, quizRepo, user, weekNumber, question.ID)

		ticket, err := svc.MintTicket(context.Background(), user, weekNumber, testTxHash(byte(0x10*weekNumber+i)), 1.0)
		require.NoError(t, err)
		tickets = append(tickets, ticket)
	}

	return tickets
}

func TestLifecycleService_ProcessDueRaffles(t *testing.T) {
	t.Run("draws one winner from a due raffle", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := newLifecycleService(raffleRepo, quizRepo)

		seedDueRaffle(t, raffleRepo, 1)
		tickets := mintTestTickets(t, raffleRepo, quizRepo, 1, 5)

		processed, err := svc.ProcessDueRaffles(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, processed)

		raffle, err := raffleRepo.GetByWeek(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, domain.RaffleCompleted, raffle.Status)
		require.NotNil(t, raffle.WinnerAddress)
		require.NotNil(t, raffle.WinningTicketNumber)

		winner, err := raffleRepo.GetWinnerByWeek(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, *raffle.WinnerAddress, winner.WinnerAddress)
		assert.Equal(t, 5.0, winner.PrizeAmount)
		assert.Equal(t, len(tickets), winner.TotalTicketsInRaffle)
		assert.Equal(t, domain.SelectionRandom, winner.SelectionMethod)
		assert.False(t, winner.PrizeClaimed)

		// The winning ticket is flagged and belongs to the winner.
		winning, err := raffleRepo.GetTicketByID(context.Background(), winner.WinningTicketID)
		require.NoError(t, err)
		assert.True(t, winning.IsWinningTicket)
		assert.Equal(t, winner.WinnerAddress, winning.OwnerAddress)
	})

	t.Run("zero-ticket raffle completes without a winner", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := newLifecycleService(raffleRepo, quizRepo)

		seedDueRaffle(t, raffleRepo, 1)

		processed, err := svc.ProcessDueRaffles(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, processed)

		raffle, err := raffleRepo.GetByWeek(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, domain.RaffleCompleted, raffle.Status)
		assert.Nil(t, raffle.WinnerAddress)

		_, err = raffleRepo.GetWinnerByWeek(context.Background(), 1)
		assert.ErrorIs(t, err, repository.ErrWinnerNotFound)
	})

	t.Run("second sweep is a no-op", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := newLifecycleService(raffleRepo, quizRepo)

		seedDueRaffle(t, raffleRepo, 1)
		mintTestTickets(t, raffleRepo, quizRepo, 1, 3)

		processed, err := svc.ProcessDueRaffles(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, processed)

		processed, err = svc.ProcessDueRaffles(context.Background())
		require.NoError(t, err)
		assert.Zero(t, processed)

		winners, err := raffleRepo.ListUnpaidWinners(context.Background())
		require.NoError(t, err)
		assert.Len(t, winners, 1)
	})

	t.Run("failed winner write leaves the raffle for the next sweep", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		flaky := &flakyWinnerRepository{LifecycleRaffleRepository: raffleRepo, failures: 1}
		svc := NewLifecycleService(flaky, quizRepo, cache.NewMemoryCache(), 7*24*time.Hour, time.Second)

		seedDueRaffle(t, raffleRepo, 1)
		mintTestTickets(t, raffleRepo, quizRepo, 1, 3)

		_, err := svc.ProcessDueRaffles(context.Background())
		require.Error(t, err)

		// Nothing durable happened, so the raffle is still due.
		raffle, err := raffleRepo.GetByWeek(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, domain.RaffleActive, raffle.Status)
		assert.Nil(t, raffle.WinnerAddress)

		_, err = raffleRepo.GetWinnerByWeek(context.Background(), 1)
		assert.ErrorIs(t, err, repository.ErrWinnerNotFound)

		processed, err := svc.ProcessDueRaffles(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, processed)

		winners, err := raffleRepo.ListUnpaidWinners(context.Background())
		require.NoError(t, err)
		assert.Len(t, winners, 1)
	})

	t.Run("winner insert failure rolls back the status flip", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := newLifecycleService(raffleRepo, quizRepo)

		seedDueRaffle(t, raffleRepo, 1)
		tickets := mintTestTickets(t, raffleRepo, quizRepo, 1, 2)

		// A conflicting winner row makes the insert fail after the status
		// update already ran inside the same transaction.
		_, err := raffleRepo.CreateWinner(context.Background(), domain.RaffleWinner{
			WeekNumber:         1,
			WinnerAddress:      tickets[0].OwnerAddress,
			WinningTicketID:    tickets[0].ID,
			SelectionMethod:    domain.SelectionManual,
			SelectionTimestamp: time.Now(),
		})
		require.NoError(t, err)

		processed, err := svc.ProcessDueRaffles(context.Background())
		require.NoError(t, err)
		assert.Zero(t, processed)

		raffle, err := raffleRepo.GetByWeek(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, domain.RaffleActive, raffle.Status)

		for _, ticket := range tickets {
			got, err := raffleRepo.GetTicketByID(context.Background(), ticket.ID)
			require.NoError(t, err)
			assert.False(t, got.IsWinningTicket)
		}
	})

	t.Run("raffle that is not due stays active", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := newLifecycleService(raffleRepo, quizRepo)

		seedActiveRaffle(t, raffleRepo, 1)

		processed, err := svc.ProcessDueRaffles(context.Background())
		require.NoError(t, err)
		assert.Zero(t, processed)

		raffle, err := raffleRepo.GetByWeek(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, domain.RaffleActive, raffle.Status)
	})
}

func TestLifecycleService_EnsureNextRaffleExists(t *testing.T) {
	t.Run("creates week one on an empty database", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := newLifecycleService(raffleRepo, quizRepo)

		raffle, err := svc.EnsureNextRaffleExists(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, raffle.WeekNumber)
		assert.Equal(t, domain.RaffleActive, raffle.Status)
		assert.True(t, raffle.EndAt.After(raffle.StartAt))
	})

	t.Run("returns the existing active raffle", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := newLifecycleService(raffleRepo, quizRepo)

		seedActiveRaffle(t, raffleRepo, 4)

		raffle, err := svc.EnsureNextRaffleExists(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, raffle.WeekNumber)
	})

	t.Run("opens the week after the last completed one", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := newLifecycleService(raffleRepo, quizRepo)

		seedDueRaffle(t, raffleRepo, 3)
		_, err := svc.ProcessDueRaffles(context.Background())
		require.NoError(t, err)

		raffle, err := svc.EnsureNextRaffleExists(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, raffle.WeekNumber)

		// Idempotent on repeat.
		again, err := svc.EnsureNextRaffleExists(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, again.WeekNumber)
	})

	t.Run("concurrent calls agree on one raffle", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := newLifecycleService(raffleRepo, quizRepo)

		const callers = 4
		results := make(chan domain.WeeklyRaffle, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				raffle, err := svc.EnsureNextRaffleExists(context.Background())
				assert.NoError(t, err)
				results <- raffle
			}()
		}
		wg.Wait()
		close(results)

		for raffle := range results {
			assert.Equal(t, 1, raffle.WeekNumber)
		}

		raffle, err := raffleRepo.GetActive(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, raffle.WeekNumber)
	})

	t.Run("losing the creation race returns the other replica's raffle", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		racing := &lostCreateRaceRepository{LifecycleRaffleRepository: raffleRepo}
		svc := NewLifecycleService(racing, quizRepo, cache.NewMemoryCache(), 7*24*time.Hour, time.Second)

		raffle, err := svc.EnsureNextRaffleExists(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, raffle.WeekNumber)
		assert.Equal(t, domain.RaffleActive, raffle.Status)
	})
}

func TestLifecycleService_SelectWinnerManually(t *testing.T) {
	t.Run("assigns the chosen ticket", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := newLifecycleService(raffleRepo, quizRepo)

		seedActiveRaffle(t, raffleRepo, 1)
		tickets := mintTestTickets(t, raffleRepo, quizRepo, 1, 3)
		chosen := tickets[1]

		winner, err := svc.SelectWinnerManually(context.Background(), 1, chosen.ID)
		require.NoError(t, err)
		assert.Equal(t, chosen.OwnerAddress, winner.WinnerAddress)
		assert.Equal(t, domain.SelectionManual, winner.SelectionMethod)
		assert.Equal(t, 3, winner.TotalTicketsInRaffle)

		raffle, err := raffleRepo.GetByWeek(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, domain.RaffleCompleted, raffle.Status)
	})

	t.Run("rejects a ticket from another week", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := newLifecycleService(raffleRepo, quizRepo)

		seedActiveRaffle(t, raffleRepo, 1)
		tickets := mintTestTickets(t, raffleRepo, quizRepo, 1, 1)

		_, err := svc.SelectWinnerManually(context.Background(), 2, tickets[0].ID)
		assert.ErrorIs(t, err, ErrTicketWeekMismatch)
	})

	t.Run("rejects an unknown ticket", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := newLifecycleService(raffleRepo, quizRepo)

		seedActiveRaffle(t, raffleRepo, 1)

		_, err := svc.SelectWinnerManually(context.Background(), 1, 12345)
		assert.ErrorIs(t, err, ErrTicketNotFound)
	})

	t.Run("rejects a completed raffle", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := newLifecycleService(raffleRepo, quizRepo)

		seedDueRaffle(t, raffleRepo, 1)
		tickets := mintTestTickets(t, raffleRepo, quizRepo, 1, 2)

		_, err := svc.ProcessDueRaffles(context.Background())
		require.NoError(t, err)

		_, err = svc.SelectWinnerManually(context.Background(), 1, tickets[0].ID)
		assert.ErrorIs(t, err, ErrWinnerExists)
	})
}

func TestLifecycleService_Stats(t *testing.T) {
	raffleRepo, quizRepo := newTestRepos(t)
	svc := newLifecycleService(raffleRepo, quizRepo)

	seedDueRaffle(t, raffleRepo, 1)
	mintTestTickets(t, raffleRepo, quizRepo, 1, 2)

	_, err := svc.ProcessDueRaffles(context.Background())
	require.NoError(t, err)

	seedActiveRaffle(t, raffleRepo, 2)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveWeek)
	assert.Equal(t, 1, stats.CompletedRaffles)
	assert.Equal(t, 2, stats.TotalTickets)
	assert.Equal(t, 2, stats.TotalAttempts)
	assert.Equal(t, 1, stats.UnpaidWinners)
}
