package mock

import (
	"context"
	"math/big"
	"testing"

	"TokenPilot-Chain/internal/ledger"
)

func TestTransferMovesBalance(t *testing.T) {
	l := NewLedger()
	l.Mint("cfx-espace", "alice", big.NewInt(1000))

	ref, err := l.Transfer(context.Background(), ledger.TransferRequest{
		Source:      "alice",
		Destination: "bob",
		Ledger:      "cfx-espace",
		Amount:      big.NewInt(300),
		CreatedAt:   1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "block 1" {
		t.Fatalf("unexpected settlement reference: %q", ref)
	}
	if got := l.BalanceOf("cfx-espace", "alice"); got.Cmp(big.NewInt(700)) != 0 {
		t.Fatalf("unexpected source balance: %s", got)
	}
	if got := l.BalanceOf("cfx-espace", "bob"); got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("unexpected destination balance: %s", got)
	}
}

func TestTransferFailureKinds(t *testing.T) {
	l := NewLedger()
	l.Mint("cfx-espace", "alice", big.NewInt(100))
	ctx := context.Background()

	_, err := l.Transfer(ctx, ledger.TransferRequest{
		Source: "alice", Destination: "bob", Ledger: "cfx-espace",
		Amount: big.NewInt(500), CreatedAt: 1,
	})
	if ledger.KindOf(err) != ledger.KindInsufficientFunds {
		t.Fatalf("expected insufficient_funds, got %v", err)
	}

	_, err = l.Transfer(ctx, ledger.TransferRequest{
		Source: "alice", Destination: "bob", Ledger: "cfx-espace",
		Amount: big.NewInt(0), CreatedAt: 2,
	})
	if ledger.KindOf(err) != ledger.KindBadRequest {
		t.Fatalf("expected bad_request, got %v", err)
	}

	if _, err = l.Transfer(ctx, ledger.TransferRequest{
		Source: "alice", Destination: "bob", Ledger: "cfx-espace",
		Amount: big.NewInt(10), CreatedAt: 3,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = l.Transfer(ctx, ledger.TransferRequest{
		Source: "alice", Destination: "bob", Ledger: "cfx-espace",
		Amount: big.NewInt(10), CreatedAt: 3,
	})
	if ledger.KindOf(err) != ledger.KindDuplicateTransfer {
		t.Fatalf("expected duplicate_transfer, got %v", err)
	}
}
