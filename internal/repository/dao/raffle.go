package dao

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrRaffleNotFound       = errors.New("raffle not found")
	ErrRaffleWeekExists     = errors.New("raffle week already exists")
	ErrRaffleNotActive      = errors.New("raffle is not active")
	ErrRaffleConflict       = errors.New("raffle changed concurrently")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrTicketExists         = errors.New("ticket already exists for this user and week")
	ErrDuplicateTransaction = errors.New("transaction hash already used")
	ErrTicketNumberTaken    = errors.New("ticket number already taken")
	ErrWinnerNotFound       = errors.New("winner not found")
	ErrWinnerExists         = errors.New("winner already recorded for this week")
	ErrPrizeAlreadyClaimed  = errors.New("prize already distributed")
)

type WeeklyRaffle struct {
	WeekNumber int `gorm:"primaryKey;autoIncrement:false"`

	Status  string    `gorm:"not null;index"`
	StartAt time.Time `gorm:"not null"`
	EndAt   time.Time `gorm:"not null"`

	PrizePool   float64 `gorm:"not null;default:0"`
	TicketsSold int     `gorm:"not null;default:0"`

	WinnerAddress       *string
	WinningTicketNumber *int

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type RaffleTicket struct {
	ID uint `gorm:"primaryKey"`

	WeekNumber   int    `gorm:"not null;uniqueIndex:idx_tickets_week_number;uniqueIndex:idx_tickets_week_owner"`
	TicketNumber int    `gorm:"not null;uniqueIndex:idx_tickets_week_number"`
	OwnerAddress string `gorm:"not null;uniqueIndex:idx_tickets_week_owner"`

	TransactionHash string  `gorm:"unique;not null"`
	AmountPaid      float64 `gorm:"not null"`
	GasFee          float64 `gorm:"not null;default:0"`

	IsWinningTicket bool      `gorm:"not null;default:false"`
	MintedAt        time.Time `gorm:"not null"`
}

type RaffleWinner struct {
	ID uint `gorm:"primaryKey"`

	WeekNumber           int     `gorm:"unique;not null"`
	WinnerAddress        string  `gorm:"not null"`
	WinningTicketID      uint    `gorm:"not null"`
	PrizeAmount          float64 `gorm:"not null"`
	TotalTicketsInRaffle int     `gorm:"not null"`

	SelectionMethod    string    `gorm:"not null"`
	SelectionTimestamp time.Time `gorm:"not null"`

	PrizeClaimed          bool `gorm:"not null;default:false"`
	PrizeDistributionHash *string
}

type RaffleDAO struct {
	db *gorm.DB
}

func NewRaffleDAO(db *gorm.DB) *RaffleDAO {
	return &RaffleDAO{
		db: db,
	}
}

// isUniqueViolation reports whether err is a unique-constraint failure,
// either as the raw postgres error or as gorm's translated sentinel.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return true
	}

	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func (d *RaffleDAO) Insert(ctx context.Context, raffle WeeklyRaffle) (WeeklyRaffle, error) {
	result := d.db.WithContext(ctx).Create(&raffle)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return WeeklyRaffle{}, ErrRaffleWeekExists
		}

		return WeeklyRaffle{}, result.Error
	}

	return raffle, nil
}

func (d *RaffleDAO) GetByWeek(ctx context.Context, weekNumber int) (WeeklyRaffle, error) {
	var raffle WeeklyRaffle

	result := d.db.WithContext(ctx).First(&raffle, "week_number = ?", weekNumber)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return WeeklyRaffle{}, ErrRaffleNotFound
		}

		return WeeklyRaffle{}, result.Error
	}

	return raffle, nil
}

func (d *RaffleDAO) GetActive(ctx context.Context) (WeeklyRaffle, error) {
	var raffle WeeklyRaffle

	result := d.db.WithContext(ctx).
		Where("status IN ?", []string{"scheduled", "active"}).
		Order("week_number DESC").
		First(&raffle)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return WeeklyRaffle{}, ErrRaffleNotFound
		}

		return WeeklyRaffle{}, result.Error
	}

	return raffle, nil
}

func (d *RaffleDAO) FindDue(ctx context.Context, now time.Time) ([]WeeklyRaffle, error) {
	var raffles []WeeklyRaffle

	result := d.db.WithContext(ctx).
		Where("status = ? AND end_at < ?", "active", now).
		Order("week_number ASC").
		Find(&raffles)
	if result.Error != nil {
		return nil, result.Error
	}

	return raffles, nil
}

func (d *RaffleDAO) MaxWeekNumber(ctx context.Context) (int, error) {
	var max int

	result := d.db.WithContext(ctx).
		Model(&WeeklyRaffle{}).
		Select("COALESCE(MAX(week_number), 0)").
		Scan(&max)
	if result.Error != nil {
		return 0, result.Error
	}

	return max, nil
}

// Complete performs the active -> completed transition as a compare-and-swap.
// A sweep that loses the race gets ErrRaffleConflict and must skip the raffle.
func (d *RaffleDAO) Complete(ctx context.Context, weekNumber int, winnerAddress *string, winningTicketNumber *int) error {
	result := d.db.WithContext(ctx).
		Model(&WeeklyRaffle{}).
		Where("week_number = ? AND status = ?", weekNumber, "active").
		Updates(map[string]interface{}{
			"status":                "completed",
			"winner_address":        winnerAddress,
			"winning_ticket_number": winningTicketNumber,
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrRaffleConflict
	}

	return nil
}

// CompleteWithWinner performs the whole winner assignment in one database
// transaction: the active -> completed compare-and-swap, the winning-ticket
// flag and the winner row. Losing the CAS returns ErrRaffleConflict and rolls
// everything back, so a raffle can never end up completed without its winner
// row.
func (d *RaffleDAO) CompleteWithWinner(ctx context.Context, winner RaffleWinner, winningTicketNumber int) (RaffleWinner, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&WeeklyRaffle{}).
			Where("week_number = ? AND status = ?", winner.WeekNumber, "active").
			Updates(map[string]interface{}{
				"status":                "completed",
				"winner_address":        winner.WinnerAddress,
				"winning_ticket_number": winningTicketNumber,
			})
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			return ErrRaffleConflict
		}

		result = tx.Model(&RaffleTicket{}).
			Where("id = ? AND is_winning_ticket = ?", winner.WinningTicketID, false).
			Update("is_winning_ticket", true)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			return ErrRaffleConflict
		}

		return tx.Create(&winner).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return RaffleWinner{}, ErrWinnerExists
		}

		return RaffleWinner{}, err
	}

	return winner, nil
}

// InsertTicket writes one ticket row and bumps the raffle's counters in the
// same database transaction, so a closed raffle or a constraint violation
// leaves no partial state behind. On a unique violation it re-reads the
// conflicting rows to decide which constraint fired, since the translated
// driver error does not say.
func (d *RaffleDAO) InsertTicket(ctx context.Context, ticket RaffleTicket) (RaffleTicket, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ticket).Error; err != nil {
			return err
		}

		result := tx.Model(&WeeklyRaffle{}).
			Where("week_number = ? AND status = ?", ticket.WeekNumber, "active").
			Updates(map[string]interface{}{
				"tickets_sold": gorm.Expr("tickets_sold + ?", 1),
				"prize_pool":   gorm.Expr("prize_pool + ?", ticket.AmountPaid),
			})
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			return ErrRaffleNotActive
		}

		return nil
	})
	if err == nil {
		return ticket, nil
	}

	if !isUniqueViolation(err) {
		return RaffleTicket{}, err
	}

	if _, hashErr := d.GetTicketByHash(ctx, ticket.TransactionHash); hashErr == nil {
		return RaffleTicket{}, ErrDuplicateTransaction
	}

	if _, ownerErr := d.GetTicketByOwner(ctx, ticket.OwnerAddress, ticket.WeekNumber); ownerErr == nil {
		return RaffleTicket{}, ErrTicketExists
	}

	return RaffleTicket{}, ErrTicketNumberTaken
}

func (d *RaffleDAO) GetTicketByID(ctx context.Context, id uint) (RaffleTicket, error) {
	var ticket RaffleTicket

	result := d.db.WithContext(ctx).First(&ticket, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return RaffleTicket{}, ErrTicketNotFound
		}

		return RaffleTicket{}, result.Error
	}

	return ticket, nil
}

func (d *RaffleDAO) GetTicketByHash(ctx context.Context, transactionHash string) (RaffleTicket, error) {
	var ticket RaffleTicket

	result := d.db.WithContext(ctx).First(&ticket, "transaction_hash = ?", transactionHash)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return RaffleTicket{}, ErrTicketNotFound
		}

		return RaffleTicket{}, result.Error
	}

	return ticket, nil
}

func (d *RaffleDAO) GetTicketByOwner(ctx context.Context, ownerAddress string, weekNumber int) (RaffleTicket, error) {
	var ticket RaffleTicket

	result := d.db.WithContext(ctx).
		First(&ticket, "owner_address = ? AND week_number = ?", ownerAddress, weekNumber)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return RaffleTicket{}, ErrTicketNotFound
		}

		return RaffleTicket{}, result.Error
	}

	return ticket, nil
}

func (d *RaffleDAO) ListTicketsByWeek(ctx context.Context, weekNumber int) ([]RaffleTicket, error) {
	var tickets []RaffleTicket

	result := d.db.WithContext(ctx).
		Where("week_number = ?", weekNumber).
		Order("ticket_number ASC").
		Find(&tickets)
	if result.Error != nil {
		return nil, result.Error
	}

	return tickets, nil
}

func (d *RaffleDAO) ListTicketsByOwner(ctx context.Context, ownerAddress string, weekNumber int) ([]RaffleTicket, error) {
	var tickets []RaffleTicket

	result := d.db.WithContext(ctx).
		Where("owner_address = ? AND week_number = ?", ownerAddress, weekNumber).
		Order("ticket_number ASC").
		Find(&tickets)
	if result.Error != nil {
		return nil, result.Error
	}

	return tickets, nil
}

func (d *RaffleDAO) MaxTicketNumber(ctx context.Context, weekNumber int) (int, error) {
	var max int

	result := d.db.WithContext(ctx).
		Model(&RaffleTicket{}).
		Where("week_number = ?", weekNumber).
		Select("COALESCE(MAX(ticket_number), 0)").
		Scan(&max)
	if result.Error != nil {
		return 0, result.Error
	}

	return max, nil
}

func (d *RaffleDAO) CountTickets(ctx context.Context) (int64, error) {
	var count int64

	result := d.db.WithContext(ctx).Model(&RaffleTicket{}).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

func (d *RaffleDAO) InsertWinner(ctx context.Context, winner RaffleWinner) (RaffleWinner, error) {
	result := d.db.WithContext(ctx).Create(&winner)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return RaffleWinner{}, ErrWinnerExists
		}

		return RaffleWinner{}, result.Error
	}

	return winner, nil
}

func (d *RaffleDAO) GetWinnerByWeek(ctx context.Context, weekNumber int) (RaffleWinner, error) {
	var winner RaffleWinner

	result := d.db.WithContext(ctx).First(&winner, "week_number = ?", weekNumber)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return RaffleWinner{}, ErrWinnerNotFound
		}

		return RaffleWinner{}, result.Error
	}

	return winner, nil
}

func (d *RaffleDAO) ListUnpaidWinners(ctx context.Context) ([]RaffleWinner, error) {
	var winners []RaffleWinner

	result := d.db.WithContext(ctx).
		Where("prize_claimed = ?", false).
		Order("week_number ASC").
		Find(&winners)
	if result.Error != nil {
		return nil, result.Error
	}

	return winners, nil
}

// MarkPrizeDistributed records a successful payout. Guarded by prize_claimed
// so a concurrent retry cannot overwrite the distribution hash.
func (d *RaffleDAO) MarkPrizeDistributed(ctx context.Context, winnerID uint, distributionHash string) error {
	result := d.db.WithContext(ctx).
		Model(&RaffleWinner{}).
		Where("id = ? AND prize_claimed = ?", winnerID, false).
		Updates(map[string]interface{}{
			"prize_claimed":           true,
			"prize_distribution_hash": distributionHash,
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrPrizeAlreadyClaimed
	}

	return nil
}

func (d *RaffleDAO) CountRafflesByStatus(ctx context.Context, status string) (int64, error) {
	var count int64

	result := d.db.WithContext(ctx).
		Model(&WeeklyRaffle{}).
		Where("status = ?", status).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

func (d *RaffleDAO) CountUnpaidWinners(ctx context.Context) (int64, error) {
	var count int64

	result := d.db.WithContext(ctx).
		Model(&RaffleWinner{}).
		Where("prize_claimed = ?", false).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}
