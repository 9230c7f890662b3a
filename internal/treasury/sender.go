package treasury

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/vietanh2810/raffle-api/internal/config"
)

const transferGasLimit = 21000

// Sender signs and dispatches prize transfers from the treasury wallet. It is
// deliberately decoupled from winner selection: a failed send never touches
// the draw result.
type Sender struct {
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	from       common.Address
	chainID    *big.Int
	conf       *config.ChainConfig
}

func NewSender(conf *config.ChainConfig) (*Sender, error) {
	privateKey, err := crypto.HexToECDSA(conf.TreasuryPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto.HexToECDSA -> %w", err)
	}

	client, err := ethclient.Dial(conf.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("ethclient.Dial -> %w", err)
	}

	return &Sender{
		client:     client,
		privateKey: privateKey,
		from:       crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    big.NewInt(conf.ChainID),
		conf:       conf,
	}, nil
}

// Send transfers amount (in token units) to the given address and returns the
// transaction hash.
func (s *Sender) Send(ctx context.Context, to string, amount float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.conf.RPCTimeout)
	defer cancel()

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("s.client.SuggestGasPrice -> %w", err)
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return "", fmt.Errorf("s.client.PendingNonceAt -> %w", err)
	}

	tx := types.NewTransaction(nonce, common.HexToAddress(to), tokenToWei(amount), transferGasLimit, gasPrice, nil)

	signedTx, err := types.SignTx(tx, types.NewLondonSigner(s.chainID), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("types.SignTx -> %w", err)
	}

	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("s.client.SendTransaction -> %w", err)
	}

	return signedTx.Hash().Hex(), nil
}

func tokenToWei(amount float64) *big.Int {
	wei, _ := new(big.Float).Mul(
		big.NewFloat(amount),
		big.NewFloat(1e18),
	).Int(nil)

	return wei
}
