package response

import "github.com/vietanh2810/raffle-api/internal/domain"

type MintTicketResponse struct {
	Message string              `json:"message"`
	Ticket  domain.RaffleTicket `json:"ticket"`
}

type ProcessRafflesResponse struct {
	Message        string              `json:"message"`
	ProcessedCount int                 `json:"processed_count"`
	ActiveRaffle   domain.WeeklyRaffle `json:"active_raffle"`
}

type DistributePrizeResponse struct {
	Message string              `json:"message"`
	Winner  domain.RaffleWinner `json:"winner"`
}
