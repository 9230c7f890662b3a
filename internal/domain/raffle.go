package domain

import "time"

type RaffleStatus string

const (
	RaffleScheduled RaffleStatus = "scheduled"
	RaffleActive    RaffleStatus = "active"
	RaffleCompleted RaffleStatus = "completed"
)

type SelectionMethod string

const (
	SelectionRandom SelectionMethod = "random"
	SelectionManual SelectionMethod = "manual"
)

// WeeklyRaffle is the aggregate for one raffle week. There is at most one
// active raffle at any time and status only moves forward
// (scheduled -> active -> completed).
type WeeklyRaffle struct {
	WeekNumber          int          `json:"week_number"`
	Status              RaffleStatus `json:"status"`
	StartAt             time.Time    `json:"start_at"`
	EndAt               time.Time    `json:"end_at"`
	PrizePool           float64      `json:"prize_pool"`
	TicketsSold         int          `json:"tickets_sold"`
	WinnerAddress       *string      `json:"winner_address,omitempty"`
	WinningTicketNumber *int         `json:"winning_ticket_number,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// RaffleTicket is one paid, quiz-gated entry into a week's draw. The
// transaction hash is the idempotency key: a payment can mint one ticket only.
type RaffleTicket struct {
	ID              uint      `json:"id"`
	WeekNumber      int       `json:"week_number"`
	TicketNumber    int       `json:"ticket_number"`
	OwnerAddress    string    `json:"owner_address"`
	TransactionHash string    `json:"transaction_hash"`
	AmountPaid      float64   `json:"amount_paid"`
	GasFee          float64   `json:"gas_fee"`
	IsWinningTicket bool      `json:"is_winning_ticket"`
	MintedAt        time.Time `json:"minted_at"`
}

// RaffleWinner is the immutable draw snapshot for a completed week. Only the
// payout fields (PrizeClaimed, PrizeDistributionHash) change after creation.
type RaffleWinner struct {
	ID                    uint            `json:"id"`
	WeekNumber            int             `json:"week_number"`
	WinnerAddress         string          `json:"winner_address"`
	WinningTicketID       uint            `json:"winning_ticket_id"`
	PrizeAmount           float64         `json:"prize_amount"`
	TotalTicketsInRaffle  int             `json:"total_tickets_in_raffle"`
	SelectionMethod       SelectionMethod `json:"selection_method"`
	SelectionTimestamp    time.Time       `json:"selection_timestamp"`
	PrizeClaimed          bool            `json:"prize_claimed"`
	PrizeDistributionHash *string         `json:"prize_distribution_hash,omitempty"`
}

// RaffleStats is the aggregate view served to operators.
type RaffleStats struct {
	ActiveWeek       int `json:"active_week"`
	CompletedRaffles int `json:"completed_raffles"`
	TotalTickets     int `json:"total_tickets"`
	TotalAttempts    int `json:"total_attempts"`
	UnpaidWinners    int `json:"unpaid_winners"`
}
