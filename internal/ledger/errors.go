package ledger

import "errors"

// Verification failures. None of these have side effects; a ticket is never
// written when any of them is returned.
var (
	ErrTxNotFound       = errors.New("transaction not found on chain")
	ErrTxFailed         = errors.New("transaction failed on chain")
	ErrNotFinalized     = errors.New("transaction is not finalized yet")
	ErrSenderMismatch   = errors.New("transaction sender does not match")
	ErrWrongRecipient   = errors.New("transaction was not sent to the treasury")
	ErrAmountMismatch   = errors.New("transaction amount does not match")
	ErrBelowMinimum     = errors.New("transaction amount is below the minimum ticket price")
	ErrChainUnavailable = errors.New("chain RPC unavailable")
)
