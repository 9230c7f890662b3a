package ledger

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/vietanh2810/raffle-api/internal/config"
	"github.com/vietanh2810/raffle-api/internal/domain"
)

// Verifier validates a claimed payment against the chain before any ticket
// row may be written. It is read-only: verification never mutates anything.
type Verifier struct {
	fetcher          TxFetcher
	treasuryAddress  string
	minConfirmations uint64
	minTicketPrice   float64
	amountTolerance  float64
}

func NewVerifier(fetcher TxFetcher, conf *config.ChainConfig) *Verifier {
	tolerance := conf.AmountTolerance
	if tolerance == 0 {
		tolerance = 1e-9
	}

	return &Verifier{
		fetcher:          fetcher,
		treasuryAddress:  conf.TreasuryAddress,
		minConfirmations: conf.MinConfirmations,
		minTicketPrice:   conf.MinTicketPrice,
		amountTolerance:  tolerance,
	}
}

// VerifyPayment fetches the transaction and checks finality, recipient,
// sender and amount. The returned details are the only trusted view of the
// payment; callers must not use any client-supplied figure afterwards.
func (v *Verifier) VerifyPayment(ctx context.Context, transactionHash string, expectedAmount float64, expectedSender string) (domain.PaymentDetails, error) {
	tx, err := v.fetcher.GetTransaction(ctx, transactionHash)
	if err != nil {
		return domain.PaymentDetails{}, fmt.Errorf("v.fetcher.GetTransaction -> %w", err)
	}

	if tx.Pending || tx.Confirmations < v.minConfirmations {
		return domain.PaymentDetails{}, ErrNotFinalized
	}

	if !tx.Success {
		return domain.PaymentDetails{}, ErrTxFailed
	}

	if !strings.EqualFold(tx.Recipient, v.treasuryAddress) {
		return domain.PaymentDetails{}, ErrWrongRecipient
	}

	if !strings.EqualFold(tx.Sender, expectedSender) {
		return domain.PaymentDetails{}, ErrSenderMismatch
	}

	if tx.Amount < v.minTicketPrice-v.amountTolerance {
		return domain.PaymentDetails{}, ErrBelowMinimum
	}

	if math.Abs(tx.Amount-expectedAmount) > v.amountTolerance {
		return domain.PaymentDetails{}, ErrAmountMismatch
	}

	return domain.PaymentDetails{
		TransactionHash: tx.Hash,
		Sender:          tx.Sender,
		Amount:          tx.Amount,
		GasFee:          tx.GasFee,
		BlockNumber:     tx.BlockNumber,
	}, nil
}
