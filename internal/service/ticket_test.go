package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/raffle-api/internal/domain"
	"github.com/vietanh2810/raffle-api/internal/ledger"
	"github.com/vietanh2810/raffle-api/internal/repository"
)

func testTxHash(b byte) string {
	return "0x" + strings.Repeat(string([]byte{hexDigit(b >> 4), hexDigit(b & 0xf)}), 32)
}

func testUserAddr(i int) string {
	return "0xabc00000000000000000000000000000000000" + string([]byte{hexDigit(byte(i >> 4)), hexDigit(byte(i & 0xf))})
}

func hexDigit(b byte) byte {
	if b < 10 {
		return '0' + b
	}

	return 'a' + b - 10
}

// contendedTicketRepository rejects the first CreateTicket calls the way a
// concurrent mint grabbing the same ticket number would.
type contendedTicketRepository struct {
	TicketRaffleRepository
	rejections int
}

func (r *contendedTicketRepository) CreateTicket(ctx context.Context, ticket domain.RaffleTicket) (domain.RaffleTicket, error) {
	if r.rejections > 0 {
		r.rejections--
		return domain.RaffleTicket{}, repository.ErrTicketNumberTaken
	}

	return r.TicketRaffleRepository.CreateTicket(ctx, ticket)
}

func TestTicketService_MintTicket(t *testing.T) {
	t.Run("mints against a verified payment", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := NewTicketService(raffleRepo, quizRepo, &stubVerifier{
			details: domain.PaymentDetails{GasFee: 0.002, BlockNumber: 100},
		})

		seedActiveRaffle(t, raffleRepo, 1)
		question := seedQuestion(t, quizRepo, 1, "proof of stake")
		seedCorrectAttempt(t, quizRepo, testUser, 1, question.ID)

		ticket, err := svc.MintTicket(context.Background(), testUser, 1, testTxHash(0x11), 1.0)
		require.NoError(t, err)
		assert.Equal(t, 1, ticket.TicketNumber)
		assert.Equal(t, testUser, ticket.OwnerAddress)
		assert.Equal(t, 1.0, ticket.AmountPaid)
		assert.Equal(t, 0.002, ticket.GasFee)

		raffle, err := raffleRepo.GetByWeek(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 1, raffle.TicketsSold)
		assert.Equal(t, 1.0, raffle.PrizePool)
	})

	t.Run("ticket numbers are gapless per week", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := NewTicketService(raffleRepo, quizRepo, &stubVerifier{})

		seedActiveRaffle(t, raffleRepo, 1)
		question := seedQuestion(t, quizRepo, 1, "proof of stake")

		for i := 0; i < 3; i++ {
			user := strings.ToLower("0xabc000000000000000000000000000000000000" + string(rune('1'+i)))
			seedCorrectAttempt(t, quizRepo, user, 1, question.ID)

			ticket, err := svc.MintTicket(context.Background(), user, 1, testTxHash(byte(0x20+i)), 1.0)
			require.NoError(t, err)
			assert.Equal(t, i+1, ticket.TicketNumber)
		}

		raffle, err := raffleRepo.GetByWeek(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 3, raffle.TicketsSold)
		assert.Equal(t, 3.0, raffle.PrizePool)
	})

	t.Run("concurrent mints with one hash produce one ticket", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := NewTicketService(raffleRepo, quizRepo, &stubVerifier{})

		seedActiveRaffle(t, raffleRepo, 1)
		question := seedQuestion(t, quizRepo, 1, "proof of stake")

		const minters = 4
		users := make([]string, minters)
		for i := range users {
			users[i] = testUserAddr(i + 1)
			seedCorrectAttempt(t, quizRepo, users[i], 1, question.ID)
		}

		hash := testTxHash(0xa1)
		errs := make(chan error, minters)
		var wg sync.WaitGroup
		for _, user := range users {
			wg.Add(1)
			go func(user string) {
				defer wg.Done()
				_, err := svc.MintTicket(context.Background(), user, 1, hash, 1.0)
				errs <- err
			}(user)
		}
		wg.Wait()
		close(errs)

		minted, rejected := 0, 0
		for err := range errs {
			switch {
			case err == nil:
				minted++
			case errors.Is(err, ErrDuplicateTransaction):
				rejected++
			default:
				t.Fatalf("unexpected mint error: %v", err)
			}
		}
		assert.Equal(t, 1, minted)
		assert.Equal(t, minters-1, rejected)

		raffle, err := raffleRepo.GetByWeek(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 1, raffle.TicketsSold)
		assert.Equal(t, 1.0, raffle.PrizePool)
	})

	t.Run("ticket numbers stay gapless under concurrent minting", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := NewTicketService(raffleRepo, quizRepo, &stubVerifier{})

		seedActiveRaffle(t, raffleRepo, 1)
		question := seedQuestion(t, quizRepo, 1, "proof of stake")

		const minters = 4
		var wg sync.WaitGroup
		for i := 0; i < minters; i++ {
			user := testUserAddr(i + 1)
			seedCorrectAttempt(t, quizRepo, user, 1, question.ID)

			wg.Add(1)
			go func(i int, user string) {
				defer wg.Done()
				_, err := svc.MintTicket(context.Background(), user, 1, testTxHash(byte(0xb0+i)), 1.0)
				assert.NoError(t, err)
			}(i, user)
		}
		wg.Wait()

		tickets, err := raffleRepo.ListTicketsByWeek(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, tickets, minters)

		numbers := make([]int, len(tickets))
		for i, ticket := range tickets {
			numbers[i] = ticket.TicketNumber
		}
		sort.Ints(numbers)
		for i, number := range numbers {
			assert.Equal(t, i+1, number)
		}

		raffle, err := raffleRepo.GetByWeek(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, minters, raffle.TicketsSold)
	})

	t.Run("retries when a ticket number is taken", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		contended := &contendedTicketRepository{TicketRaffleRepository: raffleRepo, rejections: 1}
		svc := NewTicketService(contended, quizRepo, &stubVerifier{})

		seedActiveRaffle(t, raffleRepo, 1)
		question := seedQuestion(t, quizRepo, 1, "proof of stake")
		seedCorrectAttempt(t, quizRepo, testUser, 1, question.ID)

		ticket, err := svc.MintTicket(context.Background(), testUser, 1, testTxHash(0xc1), 1.0)
		require.NoError(t, err)
		assert.Equal(t, 1, ticket.TicketNumber)
	})

	t.Run("gives up after exhausting number retries", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		contended := &contendedTicketRepository{TicketRaffleRepository: raffleRepo, rejections: mintRetries}
		svc := NewTicketService(contended, quizRepo, &stubVerifier{})

		seedActiveRaffle(t, raffleRepo, 1)
		question := seedQuestion(t, quizRepo, 1, "proof of stake")
		seedCorrectAttempt(t, quizRepo, testUser, 1, question.ID)

		_, err := svc.MintTicket(context.Background(), testUser, 1, testTxHash(0xc2), 1.0)
		assert.ErrorIs(t, err, ErrStorageConflict)
	})

	t.Run("same hash from the same owner is idempotent", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		verifier := &stubVerifier{}
		svc := NewTicketService(raffleRepo, quizRepo, verifier)

		seedActiveRaffle(t, raffleRepo, 1)
		question := seedQuestion(t, quizRepo, 1, "proof of stake")
		seedCorrectAttempt(t, quizRepo, testUser, 1, question.ID)

		first, err := svc.MintTicket(context.Background(), testUser, 1, testTxHash(0x31), 1.0)
		require.NoError(t, err)

		second, err := svc.MintTicket(context.Background(), testUser, 1, testTxHash(0x31), 1.0)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, verifier.calls)

		raffle, err := raffleRepo.GetByWeek(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 1, raffle.TicketsSold)
	})

	t.Run("same hash from another owner is rejected", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := NewTicketService(raffleRepo, quizRepo, &stubVerifier{})

		seedActiveRaffle(t, raffleRepo, 1)
		question := seedQuestion(t, quizRepo, 1, "proof of stake")
		seedCorrectAttempt(t, quizRepo, testUser, 1, question.ID)

		other := "0xabc0000000000000000000000000000000000002"
		seedCorrectAttempt(t, quizRepo, other, 1, question.ID)

		_, err := svc.MintTicket(context.Background(), testUser, 1, testTxHash(0x41), 1.0)
		require.NoError(t, err)

		_, err = svc.MintTicket(context.Background(), other, 1, testTxHash(0x41), 1.0)
		assert.ErrorIs(t, err, ErrDuplicateTransaction)
	})

	t.Run("no attempt means not eligible", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := NewTicketService(raffleRepo, quizRepo, &stubVerifier{})

		seedActiveRaffle(t, raffleRepo, 1)

		_, err := svc.MintTicket(context.Background(), testUser, 1, testTxHash(0x51), 1.0)
		assert.ErrorIs(t, err, ErrNotEligible)
	})

	t.Run("wrong answer means not eligible", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := NewTicketService(raffleRepo, quizRepo, &stubVerifier{})

		seedActiveRaffle(t, raffleRepo, 1)
		question := seedQuestion(t, quizRepo, 1, "proof of stake")

		_, err := quizRepo.CreateAttempt(context.Background(), domain.UserQuizAttempt{
			UserAddress:    testUser,
			WeekNumber:     1,
			QuizQuestionID: question.ID,
			UserAnswer:     "proof of work",
			IsCorrect:      false,
			CanMintTicket:  false,
		})
		require.NoError(t, err)

		_, err = svc.MintTicket(context.Background(), testUser, 1, testTxHash(0x52), 1.0)
		assert.ErrorIs(t, err, ErrNotEligible)
	})

	t.Run("one ticket per user per week", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := NewTicketService(raffleRepo, quizRepo, &stubVerifier{})

		seedActiveRaffle(t, raffleRepo, 1)
		question := seedQuestion(t, quizRepo, 1, "proof of stake")
		seedCorrectAttempt(t, quizRepo, testUser, 1, question.ID)

		_, err := svc.MintTicket(context.Background(), testUser, 1, testTxHash(0x61), 1.0)
		require.NoError(t, err)

		// A fresh payment does not buy a second ticket.
		_, err = svc.MintTicket(context.Background(), testUser, 1, testTxHash(0x62), 1.0)
		assert.ErrorIs(t, err, ErrNotEligible)
	})

	t.Run("completed raffle rejects mints", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := NewTicketService(raffleRepo, quizRepo, &stubVerifier{})

		raffle := seedDueRaffle(t, raffleRepo, 1)
		question := seedQuestion(t, quizRepo, 1, "proof of stake")
		seedCorrectAttempt(t, quizRepo, testUser, 1, question.ID)
		require.NoError(t, raffleRepo.Complete(context.Background(), raffle.WeekNumber, nil, nil))

		_, err := svc.MintTicket(context.Background(), testUser, 1, testTxHash(0x71), 1.0)
		assert.ErrorIs(t, err, ErrRaffleNotActive)
	})

	t.Run("verification failures leave no ticket behind", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := NewTicketService(raffleRepo, quizRepo, &stubVerifier{err: ledger.ErrAmountMismatch})

		seedActiveRaffle(t, raffleRepo, 1)
		question := seedQuestion(t, quizRepo, 1, "proof of stake")
		seedCorrectAttempt(t, quizRepo, testUser, 1, question.ID)

		_, err := svc.MintTicket(context.Background(), testUser, 1, testTxHash(0x81), 1.0)
		assert.ErrorIs(t, err, ledger.ErrAmountMismatch)

		_, err = raffleRepo.GetTicketByHash(context.Background(), testTxHash(0x81))
		assert.ErrorIs(t, err, repository.ErrTicketNotFound)

		raffle, err := raffleRepo.GetByWeek(context.Background(), 1)
		require.NoError(t, err)
		assert.Zero(t, raffle.TicketsSold)
		assert.Zero(t, raffle.PrizePool)
	})

	t.Run("uppercase address mints for the lowercase owner", func(t *testing.T) {
		raffleRepo, quizRepo := newTestRepos(t)
		svc := NewTicketService(raffleRepo, quizRepo, &stubVerifier{})

		seedActiveRaffle(t, raffleRepo, 1)
		question := seedQuestion(t, quizRepo, 1, "proof of stake")
		seedCorrectAttempt(t, quizRepo, testUser, 1, question.ID)

		ticket, err := svc.MintTicket(context.Background(), "0xABC0000000000000000000000000000000000001", 1, testTxHash(0x91), 1.0)
		require.NoError(t, err)
		assert.Equal(t, testUser, ticket.OwnerAddress)
	})
}
