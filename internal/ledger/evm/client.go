// Package evm settles transfer intents on EVM compatible chains through a
// JSON-RPC endpoint. The engine funds transfers from a single operator key;
// the intent's recorded owner is checked against the operator balance before
// broadcasting.
package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"TokenPilot-Chain/internal/ledger"
)

// Config describes how to construct an EVM settlement client.
type Config struct {
	RPCURL     string
	PrivateKey string
	GasLimit   uint64
}

// Backend mirrors the subset of ethclient methods the driver needs, so tests
// can substitute a fake without a live node.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Client implements ledger.Client on top of an EVM JSON-RPC backend.
type Client struct {
	backend  Backend
	key      *ecdsa.PrivateKey
	from     common.Address
	gasLimit uint64

	mu      sync.Mutex
	chainID *big.Int
	rpc     *gethrpc.Client
}

// NewClient dials the configured RPC endpoint and loads the operator key.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("EVM RPC URL is required")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse operator key: %w", err)
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial EVM node: %w", err)
	}

	client := newClient(ethclient.NewClient(rpcClient), key, cfg.GasLimit)
	client.rpc = rpcClient
	return client, nil
}

// NewClientWithBackend wires an explicit backend, used by tests.
func NewClientWithBackend(backend Backend, key *ecdsa.PrivateKey, gasLimit uint64) *Client {
	return newClient(backend, key, gasLimit)
}

func newClient(backend Backend, key *ecdsa.PrivateKey, gasLimit uint64) *Client {
	if gasLimit == 0 {
		gasLimit = 21000
	}
	return &Client{
		backend:  backend,
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		gasLimit: gasLimit,
	}
}

// Transfer implements ledger.Client. It signs and broadcasts a value transfer
// and returns the transaction hash as the settlement reference.
func (c *Client) Transfer(ctx context.Context, req ledger.TransferRequest) (string, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return "", ledger.Failure(ledger.KindBadRequest, nil, "transfer amount must be positive")
	}
	if !common.IsHexAddress(req.Destination) {
		return "", ledger.Failure(ledger.KindBadRequest, nil, "destination is not an EVM address")
	}

	chainID, err := c.resolveChainID(ctx)
	if err != nil {
		return "", ledger.Failure(ledger.KindTemporarilyUnavailable, err, "query chain id")
	}

	balance, err := c.backend.BalanceAt(ctx, c.from, nil)
	if err != nil {
		return "", ledger.Failure(ledger.KindTemporarilyUnavailable, err, "query operator balance")
	}
	if balance.Cmp(req.Amount) < 0 {
		return "", ledger.Failure(ledger.KindInsufficientFunds, nil, "operator balance below transfer amount")
	}

	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", ledger.Failure(ledger.KindTemporarilyUnavailable, err, "query pending nonce")
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", ledger.Failure(ledger.KindTemporarilyUnavailable, err, "query gas price")
	}

	to := common.HexToAddress(req.Destination)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    new(big.Int).Set(req.Amount),
		Gas:      c.gasLimit,
		GasPrice: gasPrice,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), c.key)
	if err != nil {
		return "", ledger.Failure(ledger.KindBadRequest, err, "sign transaction")
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return "", classifySendError(err)
	}
	return signed.Hash().Hex(), nil
}

func (c *Client) resolveChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chainID != nil {
		return c.chainID, nil
	}
	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	c.chainID = chainID
	return chainID, nil
}

// classifySendError maps node-side rejections onto the ledger failure kinds.
func classifySendError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return ledger.Failure(ledger.KindInsufficientFunds, err, "node rejected transfer")
	case strings.Contains(msg, "nonce too low"), strings.Contains(msg, "already known"):
		return ledger.Failure(ledger.KindDuplicateTransfer, err, "node rejected transfer")
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "exceeds"):
		return ledger.Failure(ledger.KindBadRequest, err, "node rejected transfer")
	default:
		return ledger.Failure(ledger.KindTemporarilyUnavailable, err, "node rejected transfer")
	}
}

// Close releases the network connection held by the client.
func (c *Client) Close() error {
	if c.rpc != nil {
		c.rpc.Close()
	}
	return nil
}

var _ ledger.Client = (*Client)(nil)
