package domain

// PaymentDetails is the verified view of an on-chain payment, extracted by the
// ledger verifier before any ticket is written.
type PaymentDetails struct {
	TransactionHash string  `json:"transaction_hash"`
	Sender          string  `json:"sender"`
	Amount          float64 `json:"amount"`
	GasFee          float64 `json:"gas_fee"`
	BlockNumber     uint64  `json:"block_number"`
}
