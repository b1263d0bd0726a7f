package intent

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	xerrors "TokenPilot-Chain/internal/errors"
)

func newTestIntent(t *testing.T, store Store, owner string) *Intent {
	t.Helper()
	builder := NewBuilder(store)
	it, err := builder.Draft(context.Background(), DraftRequest{
		Owner:   owner,
		Action:  "transfer",
		To:      "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
		Symbol:  "CFX",
		Ledger:  "cfx-espace",
		Amount:  big.NewInt(10_000_000_000),
		Display: "10",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return it
}

func TestChecksumIgnoresIDAndSummary(t *testing.T) {
	amount := big.NewInt(1234)
	createdAt := time.Now().UnixNano()
	a := ComputeChecksum("alice", "0xabc", "", amount, "CFX", "cfx-espace", "", createdAt)
	b := ComputeChecksum("alice", "0xabc", "", amount, "CFX", "cfx-espace", "", createdAt)
	if a != b {
		t.Fatalf("checksum is not deterministic: %s vs %s", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("expected 8-byte hex checksum, got %q", a)
	}

	c := ComputeChecksum("alice", "0xabc", "", amount, "CFX", "cfx-espace", "rent", createdAt)
	if a == c {
		t.Fatal("memo change should change the checksum")
	}
}

func TestBuilderTripleIndex(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	it := newTestIntent(t, store, "alice")

	if got, ok := store.ByID(ctx, it.ID); !ok || got.ID != it.ID {
		t.Fatal("intent not reachable by id")
	}
	if got, ok := store.ByChecksum(ctx, it.Checksum); !ok || got.ID != it.ID {
		t.Fatal("intent not reachable by checksum")
	}
	if got, ok := store.LastByOwner(ctx, "alice"); !ok || got.ID != it.ID {
		t.Fatal("intent not reachable as owner's most recent")
	}
	if !strings.Contains(it.Summary, "10 CFX") {
		t.Fatalf("summary should mention amount and symbol, got %q", it.Summary)
	}
	if store.PendingCount(ctx) != 1 {
		t.Fatalf("expected 1 pending intent, got %d", store.PendingCount(ctx))
	}
}

func TestMarkExecutedIsTerminal(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	it := newTestIntent(t, store, "alice")

	if err := store.MarkExecuted(ctx, it.ID, "block-7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := store.ByID(ctx, it.ID); got.Status != StatusExecuted || got.Result != "block-7" {
		t.Fatalf("intent not marked executed: %+v", got)
	}
	if err := store.MarkExecuted(ctx, it.ID, "block-8"); xerrors.CodeOf(err) != xerrors.CodeDuplicateExecution {
		t.Fatalf("expected DUPLICATE_EXECUTION, got %v", err)
	}
}

// 确认读与终态写并发进行时不得共享可变内存，
// 且调用方持有的快照改不动库内状态。
func TestStoreSnapshotsIsolateConcurrentConfirmations(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	it := newTestIntent(t, store, "alice")

	secret, err := NewSecret()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gate := NewCodeGate(store, secret, DefaultCodeTTL, DefaultCodeLength)
	code := gate.Code(it.ID)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, _ = gate.Match(ctx, "alice", Confirmation{Text: code})
		}
	}()
	go func() {
		defer wg.Done()
		_ = store.MarkExecuted(ctx, it.ID, "block 1")
	}()
	wg.Wait()

	snap, _ := store.ByID(ctx, it.ID)
	snap.Status = StatusExpired
	snap.Result = "tampered"
	if fresh, _ := store.ByID(ctx, it.ID); fresh.Status != StatusExecuted || fresh.Result != "block 1" {
		t.Fatalf("store state leaked through a returned snapshot: %+v", fresh)
	}
}

func TestCodeGateMatch(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	it := newTestIntent(t, store, "alice")

	secret, err := NewSecret()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gate := NewCodeGate(store, secret, DefaultCodeTTL, DefaultCodeLength)

	code := gate.Code(it.ID)
	if !strings.HasPrefix(code, "#") || len(code) != 1+DefaultCodeLength {
		t.Fatalf("unexpected code format: %q", code)
	}

	// 大小写不敏感的子串匹配。
	matched, err := gate.Match(ctx, "alice", Confirmation{Text: "ok " + strings.ToLower(code) + " go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched.ID != it.ID {
		t.Fatalf("matched wrong intent: %s", matched.ID)
	}

	if _, err := gate.Match(ctx, "alice", Confirmation{Text: "yes please"}); xerrors.CodeOf(err) != xerrors.CodeNoMatchingCode {
		t.Fatalf("expected NO_MATCHING_CODE, got %v", err)
	}
	if _, err := gate.Match(ctx, "bob", Confirmation{Text: code}); xerrors.CodeOf(err) != xerrors.CodeNoPendingIntent {
		t.Fatalf("expected NO_PENDING_INTENT for other caller, got %v", err)
	}

	// 已执行意图的口令再次回帖时明确拒绝。
	if err := store.MarkExecuted(ctx, it.ID, "block-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := gate.Match(ctx, "alice", Confirmation{Text: code}); xerrors.CodeOf(err) != xerrors.CodeDuplicateExecution {
		t.Fatalf("expected DUPLICATE_EXECUTION after execution, got %v", err)
	}
}

func TestCodeGateExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	it := newTestIntent(t, store, "alice")

	secret, err := NewSecret()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gate := NewCodeGate(store, secret, DefaultCodeTTL, DefaultCodeLength)
	gate.now = func() time.Time { return time.Unix(0, it.CreatedAt).Add(DefaultCodeTTL + time.Second) }

	if _, err := gate.Match(ctx, "alice", Confirmation{Text: gate.Code(it.ID)}); xerrors.CodeOf(err) != xerrors.CodeNoPendingIntent {
		t.Fatalf("expected NO_PENDING_INTENT after expiry, got %v", err)
	}
}

func TestChecksumGateMatch(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	it := newTestIntent(t, store, "alice")
	gate := NewChecksumGate(store)

	// 裸校验和。
	matched, err := gate.Match(ctx, "alice", Confirmation{Checksum: it.Checksum})
	if err != nil || matched.ID != it.ID {
		t.Fatalf("checksum match failed: %v", err)
	}

	// 完整负载经校验和索引换取库内副本。
	payload, err := json.Marshal(it)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	matched, err = gate.Match(ctx, "alice", Confirmation{Payload: payload})
	if err != nil || matched.ID != it.ID {
		t.Fatalf("payload match failed: %v", err)
	}

	// 空输入回退到最近一条。
	matched, err = gate.Match(ctx, "alice", Confirmation{})
	if err != nil || matched.ID != it.ID {
		t.Fatalf("fallback match failed: %v", err)
	}

	// 所有者隔离：他人即使持有正确校验和也无法确认。
	if _, err := gate.Match(ctx, "bob", Confirmation{Checksum: it.Checksum}); xerrors.CodeOf(err) != xerrors.CodeNoPendingIntent {
		t.Fatalf("expected NO_PENDING_INTENT for other caller, got %v", err)
	}
}

func TestChecksumGateNoCandidate(t *testing.T) {
	gate := NewChecksumGate(NewMemoryStore())
	if _, err := gate.Match(context.Background(), "alice", Confirmation{}); xerrors.CodeOf(err) != xerrors.CodeNoPendingIntent {
		t.Fatalf("expected NO_PENDING_INTENT, got %v", err)
	}
}

func TestMemoryReplayGuard(t *testing.T) {
	guard := NewMemoryReplayGuard()
	ctx := context.Background()

	seen, err := guard.Contains(ctx, "abcd")
	if err != nil || seen {
		t.Fatalf("fresh checksum should be absent: %v %v", seen, err)
	}
	if err := guard.Add(ctx, "abcd"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen, err = guard.Contains(ctx, "abcd")
	if err != nil || !seen {
		t.Fatalf("checksum should be present after Add: %v %v", seen, err)
	}
}
