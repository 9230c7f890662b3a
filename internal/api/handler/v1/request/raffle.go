package request

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	chainAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	txHashPattern       = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

	isChainAddress = validation.Match(chainAddressPattern).Error("must be a 0x-prefixed 40-hex-char address")
	isTxHash       = validation.Match(txHashPattern).Error("must be a 0x-prefixed 64-hex-char transaction hash")
)

type MintTicketRequest struct {
	UserAddress     string  `json:"user_address"`
	WeekNumber      int     `json:"week_number"`
	TransactionHash string  `json:"transaction_hash"`
	AmountPaid      float64 `json:"amount_paid"`
}

func (req *MintTicketRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.UserAddress, validation.Required, isChainAddress),
		validation.Field(&req.WeekNumber, validation.Required, validation.Min(1)),
		validation.Field(&req.TransactionHash, validation.Required, isTxHash),
		validation.Field(&req.AmountPaid, validation.Required, validation.Min(0.0)),
	)
}

type SelectWinnerRequest struct {
	TicketID uint `json:"ticket_id"`
}

func (req *SelectWinnerRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.TicketID, validation.Required),
	)
}
