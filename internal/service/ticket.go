package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vietanh2810/raffle-api/internal/domain"
	"github.com/vietanh2810/raffle-api/internal/repository"
)

var (
	ErrNotEligible          = errors.New("user is not eligible to mint a ticket this week")
	ErrRaffleNotActive      = repository.ErrRaffleNotActive
	ErrDuplicateTransaction = repository.ErrDuplicateTransaction
	ErrStorageConflict      = errors.New("lost a concurrent update race, re-check state")
)

// mintRetries bounds the ticket-number compare-and-swap loop. Contention is
// per week, so a handful of retries is plenty.
const mintRetries = 5

type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, transactionHash string, expectedAmount float64, expectedSender string) (domain.PaymentDetails, error)
}

type TicketRaffleRepository interface {
	GetByWeek(ctx context.Context, weekNumber int) (domain.WeeklyRaffle, error)
	CreateTicket(ctx context.Context, ticket domain.RaffleTicket) (domain.RaffleTicket, error)
	GetTicketByHash(ctx context.Context, transactionHash string) (domain.RaffleTicket, error)
	GetTicketByOwner(ctx context.Context, ownerAddress string, weekNumber int) (domain.RaffleTicket, error)
	MaxTicketNumber(ctx context.Context, weekNumber int) (int, error)
}

type TicketQuizRepository interface {
	GetAttempt(ctx context.Context, userAddress string, weekNumber int) (domain.UserQuizAttempt, error)
}

type TicketService struct {
	raffleRepo TicketRaffleRepository
	quizRepo   TicketQuizRepository
	verifier   PaymentVerifier
}

func NewTicketService(raffleRepo TicketRaffleRepository, quizRepo TicketQuizRepository, verifier PaymentVerifier) *TicketService {
	return &TicketService{
		raffleRepo: raffleRepo,
		quizRepo:   quizRepo,
		verifier:   verifier,
	}
}

// MintTicket converts a verified payment plus a passed quiz attempt into one
// raffle ticket. Nothing durable happens unless both eligibility and payment
// verification succeed; the transaction-hash constraint makes retries
// idempotent.
func (s *TicketService) MintTicket(ctx context.Context, userAddress string, weekNumber int, transactionHash string, amountPaid float64) (domain.RaffleTicket, error) {
	userAddress = strings.ToLower(userAddress)

	// A retried client call with the same hash returns the ticket it already
	// minted instead of a rejection.
	if existing, err := s.raffleRepo.GetTicketByHash(ctx, transactionHash); err == nil {
		if existing.OwnerAddress == userAddress {
			return existing, nil
		}

		return domain.RaffleTicket{}, ErrDuplicateTransaction
	} else if !errors.Is(err, repository.ErrTicketNotFound) {
		return domain.RaffleTicket{}, fmt.Errorf("s.raffleRepo.GetTicketByHash -> %w", err)
	}

	attempt, err := s.quizRepo.GetAttempt(ctx, userAddress, weekNumber)
	if err != nil {
		if errors.Is(err, repository.ErrAttemptNotFound) {
			return domain.RaffleTicket{}, ErrNotEligible
		}

		return domain.RaffleTicket{}, fmt.Errorf("s.quizRepo.GetAttempt -> %w", err)
	}

	if !attempt.IsCorrect || !attempt.CanMintTicket {
		return domain.RaffleTicket{}, ErrNotEligible
	}

	// One correct answer authorizes exactly one ticket.
	if _, err = s.raffleRepo.GetTicketByOwner(ctx, userAddress, weekNumber); err == nil {
		return domain.RaffleTicket{}, ErrNotEligible
	} else if !errors.Is(err, repository.ErrTicketNotFound) {
		return domain.RaffleTicket{}, fmt.Errorf("s.raffleRepo.GetTicketByOwner -> %w", err)
	}

	raffle, err := s.raffleRepo.GetByWeek(ctx, weekNumber)
	if err != nil {
		if errors.Is(err, repository.ErrRaffleNotFound) {
			return domain.RaffleTicket{}, ErrRaffleNotActive
		}

		return domain.RaffleTicket{}, fmt.Errorf("s.raffleRepo.GetByWeek -> %w", err)
	}

	if raffle.Status != domain.RaffleActive {
		return domain.RaffleTicket{}, ErrRaffleNotActive
	}

	payment, err := s.verifier.VerifyPayment(ctx, transactionHash, amountPaid, userAddress)
	if err != nil {
		return domain.RaffleTicket{}, err
	}

	for i := 0; i < mintRetries; i++ {
		maxNumber, err := s.raffleRepo.MaxTicketNumber(ctx, weekNumber)
		if err != nil {
			return domain.RaffleTicket{}, fmt.Errorf("s.raffleRepo.MaxTicketNumber -> %w", err)
		}

		ticket := domain.RaffleTicket{
			WeekNumber:      weekNumber,
			TicketNumber:    maxNumber + 1,
			OwnerAddress:    userAddress,
			TransactionHash: payment.TransactionHash,
			AmountPaid:      payment.Amount,
			GasFee:          payment.GasFee,
			MintedAt:        time.Now(),
		}

		created, err := s.raffleRepo.CreateTicket(ctx, ticket)
		switch {
		case err == nil:
			return created, nil
		case errors.Is(err, repository.ErrTicketNumberTaken):
			// Another mint grabbed this number; recompute and retry.
			continue
		case errors.Is(err, repository.ErrDuplicateTransaction):
			if existing, hashErr := s.raffleRepo.GetTicketByHash(ctx, transactionHash); hashErr == nil && existing.OwnerAddress == userAddress {
				return existing, nil
			}
			return domain.RaffleTicket{}, ErrDuplicateTransaction
		case errors.Is(err, repository.ErrTicketExists):
			return domain.RaffleTicket{}, ErrNotEligible
		case errors.Is(err, repository.ErrRaffleNotActive):
			return domain.RaffleTicket{}, ErrRaffleNotActive
		default:
			return domain.RaffleTicket{}, fmt.Errorf("s.raffleRepo.CreateTicket -> %w", err)
		}
	}

	zap.L().Warn("ticket number contention exhausted retries",
		zap.Int("week_number", weekNumber),
		zap.String("user_address", userAddress),
	)

	return domain.RaffleTicket{}, ErrStorageConflict
}
