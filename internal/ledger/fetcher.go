package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/vietanh2810/raffle-api/internal/config"
)

// ChainTransaction is the chain-agnostic view of a payment transaction, as
// the verifier consumes it.
type ChainTransaction struct {
	Hash          string
	Sender        string
	Recipient     string
	Amount        float64
	GasFee        float64
	Pending       bool
	Success       bool
	BlockNumber   uint64
	Confirmations uint64
}

// TxFetcher abstracts the chain query capability so the verifier can be
// tested without an RPC node.
type TxFetcher interface {
	GetTransaction(ctx context.Context, transactionHash string) (ChainTransaction, error)
}

// DialFetcher connects to the configured RPC endpoint and returns an
// eth-backed TxFetcher.
func DialFetcher(conf *config.ChainConfig) (*EthFetcher, error) {
	client, err := ethclient.Dial(conf.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("ethclient.Dial -> %w", err)
	}

	return &EthFetcher{
		client: client,
		conf:   conf,
	}, nil
}

type EthFetcher struct {
	client *ethclient.Client
	conf   *config.ChainConfig
}

func (f *EthFetcher) GetTransaction(ctx context.Context, transactionHash string) (ChainTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, f.conf.RPCTimeout)
	defer cancel()

	hash := common.HexToHash(transactionHash)

	tx, isPending, err := f.client.TransactionByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return ChainTransaction{}, ErrTxNotFound
		}

		return ChainTransaction{}, fmt.Errorf("%w: TransactionByHash: %v", ErrChainUnavailable, err)
	}

	result := ChainTransaction{
		Hash:    transactionHash,
		Amount:  weiToToken(tx.Value()),
		Pending: isPending,
	}

	if to := tx.To(); to != nil {
		result.Recipient = to.Hex()
	}

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(f.conf.ChainID)), tx)
	if err != nil {
		return ChainTransaction{}, fmt.Errorf("types.Sender -> %w", err)
	}
	result.Sender = sender.Hex()

	if isPending {
		return result, nil
	}

	receipt, err := f.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			// Known but not yet mined.
			result.Pending = true
			return result, nil
		}

		return ChainTransaction{}, fmt.Errorf("%w: TransactionReceipt: %v", ErrChainUnavailable, err)
	}

	result.Success = receipt.Status == types.ReceiptStatusSuccessful
	result.BlockNumber = receipt.BlockNumber.Uint64()

	gasFee := new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), receipt.EffectiveGasPrice)
	result.GasFee = weiToToken(gasFee)

	head, err := f.client.BlockNumber(ctx)
	if err != nil {
		return ChainTransaction{}, fmt.Errorf("%w: BlockNumber: %v", ErrChainUnavailable, err)
	}

	if head >= result.BlockNumber {
		result.Confirmations = head - result.BlockNumber + 1
	}

	return result, nil
}

func weiToToken(wei *big.Int) float64 {
	value, _ := new(big.Float).Quo(
		new(big.Float).SetInt(wei),
		big.NewFloat(1e18),
	).Float64()

	return value
}
