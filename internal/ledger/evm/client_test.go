package evm

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"TokenPilot-Chain/internal/ledger"
)

// fakeBackend records the transaction the driver broadcasts.
type fakeBackend struct {
	balance *big.Int
	sendErr error
	sent    *types.Transaction
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(1337), nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 7, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (f *fakeBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	if f.balance == nil {
		return big.NewInt(0), nil
	}
	return f.balance, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = tx
	return nil
}

func newTestClient(t *testing.T, backend *fakeBackend) *Client {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return NewClientWithBackend(backend, key, 0)
}

func TestTransferBroadcastsSignedTx(t *testing.T) {
	backend := &fakeBackend{balance: big.NewInt(1_000_000)}
	client := newTestClient(t, backend)

	dest := "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"
	ref, err := client.Transfer(context.Background(), ledger.TransferRequest{
		Destination: dest,
		Amount:      big.NewInt(500),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.sent == nil {
		t.Fatal("no transaction broadcast")
	}
	if !strings.HasPrefix(ref, "0x") {
		t.Fatalf("settlement reference should be a tx hash, got %q", ref)
	}
	if backend.sent.To().Hex() != common.HexToAddress(dest).Hex() {
		t.Fatalf("unexpected destination: %s", backend.sent.To().Hex())
	}
	if backend.sent.Value().Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected value: %s", backend.sent.Value())
	}
	if backend.sent.Nonce() != 7 {
		t.Fatalf("unexpected nonce: %d", backend.sent.Nonce())
	}
}

func TestTransferInsufficientOperatorBalance(t *testing.T) {
	client := newTestClient(t, &fakeBackend{balance: big.NewInt(10)})

	_, err := client.Transfer(context.Background(), ledger.TransferRequest{
		Destination: "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
		Amount:      big.NewInt(500),
	})
	if ledger.KindOf(err) != ledger.KindInsufficientFunds {
		t.Fatalf("expected insufficient_funds, got %v", err)
	}
}

func TestTransferClassifiesNodeRejection(t *testing.T) {
	backend := &fakeBackend{balance: big.NewInt(1_000_000), sendErr: errors.New("nonce too low")}
	client := newTestClient(t, backend)

	_, err := client.Transfer(context.Background(), ledger.TransferRequest{
		Destination: "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
		Amount:      big.NewInt(500),
	})
	if ledger.KindOf(err) != ledger.KindDuplicateTransfer {
		t.Fatalf("expected duplicate_transfer, got %v", err)
	}
}

func TestTransferRejectsBadDestination(t *testing.T) {
	client := newTestClient(t, &fakeBackend{balance: big.NewInt(1_000_000)})

	_, err := client.Transfer(context.Background(), ledger.TransferRequest{
		Destination: "alice",
		Amount:      big.NewInt(500),
	})
	if ledger.KindOf(err) != ledger.KindBadRequest {
		t.Fatalf("expected bad_request, got %v", err)
	}
}
