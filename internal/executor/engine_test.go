package executor

import (
	"context"
	"math/big"
	"testing"

	xerrors "TokenPilot-Chain/internal/errors"
	"TokenPilot-Chain/internal/intent"
	"TokenPilot-Chain/internal/ledger"
	"TokenPilot-Chain/internal/ledger/mock"
)

// failingLedger 让第一次调用失败，之后转交真实替身。
type failingLedger struct {
	inner    ledger.Client
	failures int
	calls    int
}

func (f *failingLedger) Transfer(ctx context.Context, req ledger.TransferRequest) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", ledger.Failure(ledger.KindTemporarilyUnavailable, nil, "账本暂不可用")
	}
	return f.inner.Transfer(ctx, req)
}

func (f *failingLedger) Close() error { return nil }

func draftTestIntent(t *testing.T, store intent.Store) *intent.Intent {
	t.Helper()
	builder := intent.NewBuilder(store)
	it, err := builder.Draft(context.Background(), intent.DraftRequest{
		Owner:   "alice",
		Action:  "transfer",
		To:      "bob",
		Symbol:  "CFX",
		Ledger:  "cfx-espace",
		Amount:  big.NewInt(300),
		Display: "300",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return it
}

func TestExecuteAtMostOnce(t *testing.T) {
	store := intent.NewMemoryStore()
	it := draftTestIntent(t, store)

	l := mock.NewLedger()
	l.Mint("cfx-espace", "alice", big.NewInt(1000))
	engine := NewEngine(store, intent.NewMemoryReplayGuard(), l)

	ctx := context.Background()
	result, err := engine.Execute(ctx, it)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == "" {
		t.Fatal("expected a settlement reference")
	}
	if stored, _ := store.ByID(ctx, it.ID); stored.Status != intent.StatusExecuted || stored.Result != result {
		t.Fatalf("intent not marked executed: %+v", stored)
	}

	// 第二次执行同一校验和必须快速失败，且不触发账本调用。
	_, err = engine.Execute(ctx, it)
	if xerrors.CodeOf(err) != xerrors.CodeDuplicateExecution {
		t.Fatalf("expected DUPLICATE_EXECUTION, got %v", err)
	}
	if got := l.BalanceOf("cfx-espace", "bob"); got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("transfer applied more than once: %s", got)
	}
}

func TestExecuteFailureLeavesIntentRetryable(t *testing.T) {
	store := intent.NewMemoryStore()
	it := draftTestIntent(t, store)

	inner := mock.NewLedger()
	inner.Mint("cfx-espace", "alice", big.NewInt(1000))
	flaky := &failingLedger{inner: inner, failures: 1}
	guard := intent.NewMemoryReplayGuard()
	engine := NewEngine(store, guard, flaky)

	ctx := context.Background()
	_, err := engine.Execute(ctx, it)
	if xerrors.CodeOf(err) != xerrors.CodeExecutionFailure {
		t.Fatalf("expected EXECUTION_FAILURE, got %v", err)
	}
	// 失败不得污染重放集合与意图状态。
	if seen, _ := guard.Contains(ctx, it.Checksum); seen {
		t.Fatal("failed execution must not mark the replay guard")
	}
	if stored, _ := store.ByID(ctx, it.ID); stored.Status != intent.StatusPending {
		t.Fatalf("failed execution must keep the intent pending, got %s", stored.Status)
	}

	// 同一确认可以重试并成功。
	result, err := engine.Execute(ctx, it)
	if err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
	stored, _ := store.ByID(ctx, it.ID)
	if result == "" || stored.Status != intent.StatusExecuted {
		t.Fatalf("retry did not execute the intent: %+v", stored)
	}
}
