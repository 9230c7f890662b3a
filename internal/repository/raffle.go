package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vietanh2810/raffle-api/internal/domain"
	"github.com/vietanh2810/raffle-api/internal/repository/dao"
)

var (
	ErrRaffleNotFound       = dao.ErrRaffleNotFound
	ErrRaffleWeekExists     = dao.ErrRaffleWeekExists
	ErrRaffleNotActive      = dao.ErrRaffleNotActive
	ErrRaffleConflict       = dao.ErrRaffleConflict
	ErrTicketNotFound       = dao.ErrTicketNotFound
	ErrTicketExists         = dao.ErrTicketExists
	ErrDuplicateTransaction = dao.ErrDuplicateTransaction
	ErrTicketNumberTaken    = dao.ErrTicketNumberTaken
	ErrWinnerNotFound       = dao.ErrWinnerNotFound
	ErrWinnerExists         = dao.ErrWinnerExists
	ErrPrizeAlreadyClaimed  = dao.ErrPrizeAlreadyClaimed
)

type RaffleDAO interface {
	Insert(ctx context.Context, raffle dao.WeeklyRaffle) (dao.WeeklyRaffle, error)
	GetByWeek(ctx context.Context, weekNumber int) (dao.WeeklyRaffle, error)
	GetActive(ctx context.Context) (dao.WeeklyRaffle, error)
	FindDue(ctx context.Context, now time.Time) ([]dao.WeeklyRaffle, error)
	MaxWeekNumber(ctx context.Context) (int, error)
	Complete(ctx context.Context, weekNumber int, winnerAddress *string, winningTicketNumber *int) error
	CompleteWithWinner(ctx context.Context, winner dao.RaffleWinner, winningTicketNumber int) (dao.RaffleWinner, error)
	InsertTicket(ctx context.Context, ticket dao.RaffleTicket) (dao.RaffleTicket, error)
	GetTicketByID(ctx context.Context, id uint) (dao.RaffleTicket, error)
	GetTicketByHash(ctx context.Context, transactionHash string) (dao.RaffleTicket, error)
	GetTicketByOwner(ctx context.Context, ownerAddress string, weekNumber int) (dao.RaffleTicket, error)
	ListTicketsByWeek(ctx context.Context, weekNumber int) ([]dao.RaffleTicket, error)
	ListTicketsByOwner(ctx context.Context, ownerAddress string, weekNumber int) ([]dao.RaffleTicket, error)
	MaxTicketNumber(ctx context.Context, weekNumber int) (int, error)
	CountTickets(ctx context.Context) (int64, error)
	InsertWinner(ctx context.Context, winner dao.RaffleWinner) (dao.RaffleWinner, error)
	GetWinnerByWeek(ctx context.Context, weekNumber int) (dao.RaffleWinner, error)
	ListUnpaidWinners(ctx context.Context) ([]dao.RaffleWinner, error)
	MarkPrizeDistributed(ctx context.Context, winnerID uint, distributionHash string) error
	CountRafflesByStatus(ctx context.Context, status string) (int64, error)
	CountUnpaidWinners(ctx context.Context) (int64, error)
}

type RaffleRepository struct {
	dao RaffleDAO
}

func NewRaffleRepository(dao RaffleDAO) *RaffleRepository {
	return &RaffleRepository{
		dao: dao,
	}
}

func (r *RaffleRepository) raffleDomainToDao(raffle domain.WeeklyRaffle) dao.WeeklyRaffle {
	return dao.WeeklyRaffle{
		WeekNumber:          raffle.WeekNumber,
		Status:              string(raffle.Status),
		StartAt:             raffle.StartAt,
		EndAt:               raffle.EndAt,
		PrizePool:           raffle.PrizePool,
		TicketsSold:         raffle.TicketsSold,
		WinnerAddress:       raffle.WinnerAddress,
		WinningTicketNumber: raffle.WinningTicketNumber,
		CreatedAt:           raffle.CreatedAt,
		UpdatedAt:           raffle.UpdatedAt,
	}
}

func (r *RaffleRepository) raffleDaoToDomain(raffle dao.WeeklyRaffle) domain.WeeklyRaffle {
	return domain.WeeklyRaffle{
		WeekNumber:          raffle.WeekNumber,
		Status:              domain.RaffleStatus(raffle.Status),
		StartAt:             raffle.StartAt,
		EndAt:               raffle.EndAt,
		PrizePool:           raffle.PrizePool,
		TicketsSold:         raffle.TicketsSold,
		WinnerAddress:       raffle.WinnerAddress,
		WinningTicketNumber: raffle.WinningTicketNumber,
		CreatedAt:           raffle.CreatedAt,
		UpdatedAt:           raffle.UpdatedAt,
	}
}

func (r *RaffleRepository) ticketDomainToDao(ticket domain.RaffleTicket) dao.RaffleTicket {
	return dao.RaffleTicket{
		ID:              ticket.ID,
		WeekNumber:      ticket.WeekNumber,
		TicketNumber:    ticket.TicketNumber,
		OwnerAddress:    ticket.OwnerAddress,
		TransactionHash: ticket.TransactionHash,
		AmountPaid:      ticket.AmountPaid,
		GasFee:          ticket.GasFee,
		IsWinningTicket: ticket.IsWinningTicket,
		MintedAt:        ticket.MintedAt,
	}
}

func (r *RaffleRepository) ticketDaoToDomain(ticket dao.RaffleTicket) domain.RaffleTicket {
	return domain.RaffleTicket{
		ID:              ticket.ID,
		WeekNumber:      ticket.WeekNumber,
		TicketNumber:    ticket.TicketNumber,
		OwnerAddress:    ticket.OwnerAddress,
		TransactionHash: ticket.TransactionHash,
		AmountPaid:      ticket.AmountPaid,
		GasFee:          ticket.GasFee,
		IsWinningTicket: ticket.IsWinningTicket,
		MintedAt:        ticket.MintedAt,
	}
}

func (r *RaffleRepository) ticketsDaoToDomain(tickets []dao.RaffleTicket) []domain.RaffleTicket {
	domainTickets := make([]domain.RaffleTicket, len(tickets))
	for i, ticket := range tickets {
		domainTickets[i] = r.ticketDaoToDomain(ticket)
	}
	return domainTickets
}

func (r *RaffleRepository) winnerDomainToDao(winner domain.RaffleWinner) dao.RaffleWinner {
	return dao.RaffleWinner{
		ID:                    winner.ID,
		WeekNumber:            winner.WeekNumber,
		WinnerAddress:         winner.WinnerAddress,
		WinningTicketID:       winner.WinningTicketID,
		PrizeAmount:           winner.PrizeAmount,
		TotalTicketsInRaffle:  winner.TotalTicketsInRaffle,
		SelectionMethod:       string(winner.SelectionMethod),
		SelectionTimestamp:    winner.SelectionTimestamp,
		PrizeClaimed:          winner.PrizeClaimed,
		PrizeDistributionHash: winner.PrizeDistributionHash,
	}
}

func (r *RaffleRepository) winnerDaoToDomain(winner dao.RaffleWinner) domain.RaffleWinner {
	return domain.RaffleWinner{
		ID:                    winner.ID,
		WeekNumber:            winner.WeekNumber,
		WinnerAddress:         winner.WinnerAddress,
		WinningTicketID:       winner.WinningTicketID,
		PrizeAmount:           winner.PrizeAmount,
		TotalTicketsInRaffle:  winner.TotalTicketsInRaffle,
		SelectionMethod:       domain.SelectionMethod(winner.SelectionMethod),
		SelectionTimestamp:    winner.SelectionTimestamp,
		PrizeClaimed:          winner.PrizeClaimed,
		PrizeDistributionHash: winner.PrizeDistributionHash,
	}
}

func (r *RaffleRepository) Create(ctx context.Context, raffle domain.WeeklyRaffle) (domain.WeeklyRaffle, error) {
	created, err := r.dao.Insert(ctx, r.raffleDomainToDao(raffle))
	if err != nil {
		return domain.WeeklyRaffle{}, err
	}

	return r.raffleDaoToDomain(created), nil
}

func (r *RaffleRepository) GetByWeek(ctx context.Context, weekNumber int) (domain.WeeklyRaffle, error) {
	raffle, err := r.dao.GetByWeek(ctx, weekNumber)
	if err != nil {
		return domain.WeeklyRaffle{}, err
	}

	return r.raffleDaoToDomain(raffle), nil
}

func (r *RaffleRepository) GetActive(ctx context.Context) (domain.WeeklyRaffle, error) {
	raffle, err := r.dao.GetActive(ctx)
	if err != nil {
		return domain.WeeklyRaffle{}, err
	}

	return r.raffleDaoToDomain(raffle), nil
}

func (r *RaffleRepository) FindDue(ctx context.Context, now time.Time) ([]domain.WeeklyRaffle, error) {
	raffles, err := r.dao.FindDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindDue -> %w", err)
	}

	domainRaffles := make([]domain.WeeklyRaffle, len(raffles))
	for i, raffle := range raffles {
		domainRaffles[i] = r.raffleDaoToDomain(raffle)
	}

	return domainRaffles, nil
}

func (r *RaffleRepository) MaxWeekNumber(ctx context.Context) (int, error) {
	return r.dao.MaxWeekNumber(ctx)
}

func (r *RaffleRepository) Complete(ctx context.Context, weekNumber int, winnerAddress *string, winningTicketNumber *int) error {
	return r.dao.Complete(ctx, weekNumber, winnerAddress, winningTicketNumber)
}

func (r *RaffleRepository) CompleteWithWinner(ctx context.Context, winner domain.RaffleWinner, winningTicketNumber int) (domain.RaffleWinner, error) {
	created, err := r.dao.CompleteWithWinner(ctx, r.winnerDomainToDao(winner), winningTicketNumber)
	if err != nil {
		return domain.RaffleWinner{}, err
	}

	return r.winnerDaoToDomain(created), nil
}

func (r *RaffleRepository) CreateTicket(ctx context.Context, ticket domain.RaffleTicket) (domain.RaffleTicket, error) {
	created, err := r.dao.InsertTicket(ctx, r.ticketDomainToDao(ticket))
	if err != nil {
		return domain.RaffleTicket{}, err
	}

	return r.ticketDaoToDomain(created), nil
}

func (r *RaffleRepository) GetTicketByID(ctx context.Context, id uint) (domain.RaffleTicket, error) {
	ticket, err := r.dao.GetTicketByID(ctx, id)
	if err != nil {
		return domain.RaffleTicket{}, err
	}

	return r.ticketDaoToDomain(ticket), nil
}

func (r *RaffleRepository) GetTicketByHash(ctx context.Context, transactionHash string) (domain.RaffleTicket, error) {
	ticket, err := r.dao.GetTicketByHash(ctx, transactionHash)
	if err != nil {
		return domain.RaffleTicket{}, err
	}

	return r.ticketDaoToDomain(ticket), nil
}

func (r *RaffleRepository) GetTicketByOwner(ctx context.Context, ownerAddress string, weekNumber int) (domain.RaffleTicket, error) {
	ticket, err := r.dao.GetTicketByOwner(ctx, ownerAddress, weekNumber)
	if err != nil {
		return domain.RaffleTicket{}, err
	}

	return r.ticketDaoToDomain(ticket), nil
}

func (r *RaffleRepository) ListTicketsByWeek(ctx context.Context, weekNumber int) ([]domain.RaffleTicket, error) {
	tickets, err := r.dao.ListTicketsByWeek(ctx, weekNumber)
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListTicketsByWeek -> %w", err)
	}

	return r.ticketsDaoToDomain(tickets), nil
}

func (r *RaffleRepository) ListTicketsByOwner(ctx context.Context, ownerAddress string, weekNumber int) ([]domain.RaffleTicket, error) {
	tickets, err := r.dao.ListTicketsByOwner(ctx, ownerAddress, weekNumber)
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListTicketsByOwner -> %w", err)
	}

	return r.ticketsDaoToDomain(tickets), nil
}

func (r *RaffleRepository) MaxTicketNumber(ctx context.Context, weekNumber int) (int, error) {
	return r.dao.MaxTicketNumber(ctx, weekNumber)
}

func (r *RaffleRepository) CreateWinner(ctx context.Context, winner domain.RaffleWinner) (domain.RaffleWinner, error) {
	created, err := r.dao.InsertWinner(ctx, r.winnerDomainToDao(winner))
	if err != nil {
		return domain.RaffleWinner{}, err
	}

	return r.winnerDaoToDomain(created), nil
}

func (r *RaffleRepository) GetWinnerByWeek(ctx context.Context, weekNumber int) (domain.RaffleWinner, error) {
	winner, err := r.dao.GetWinnerByWeek(ctx, weekNumber)
	if err != nil {
		return domain.RaffleWinner{}, err
	}

	return r.winnerDaoToDomain(winner), nil
}

func (r *RaffleRepository) ListUnpaidWinners(ctx context.Context) ([]domain.RaffleWinner, error) {
	winners, err := r.dao.ListUnpaidWinners(ctx)
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListUnpaidWinners -> %w", err)
	}

	domainWinners := make([]domain.RaffleWinner, len(winners))
	for i, winner := range winners {
		domainWinners[i] = r.winnerDaoToDomain(winner)
	}

	return domainWinners, nil
}

func (r *RaffleRepository) MarkPrizeDistributed(ctx context.Context, winnerID uint, distributionHash string) error {
	return r.dao.MarkPrizeDistributed(ctx, winnerID, distributionHash)
}

func (r *RaffleRepository) Stats(ctx context.Context) (domain.RaffleStats, error) {
	stats := domain.RaffleStats{}

	active, err := r.dao.GetActive(ctx)
	if err == nil {
		stats.ActiveWeek = active.WeekNumber
	} else if !errors.Is(err, ErrRaffleNotFound) {
		return domain.RaffleStats{}, fmt.Errorf("r.dao.GetActive -> %w", err)
	}

	completed, err := r.dao.CountRafflesByStatus(ctx, string(domain.RaffleCompleted))
	if err != nil {
		return domain.RaffleStats{}, fmt.Errorf("r.dao.CountRafflesByStatus -> %w", err)
	}
	stats.CompletedRaffles = int(completed)

	tickets, err := r.dao.CountTickets(ctx)
	if err != nil {
		return domain.RaffleStats{}, fmt.Errorf("r.dao.CountTickets -> %w", err)
	}
	stats.TotalTickets = int(tickets)

	unpaid, err := r.dao.CountUnpaidWinners(ctx)
	if err != nil {
		return domain.RaffleStats{}, fmt.Errorf("r.dao.CountUnpaidWinners -> %w", err)
	}
	stats.UnpaidWinners = int(unpaid)

	return stats, nil
}
