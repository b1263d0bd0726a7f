package account

import (
	"context"
	"testing"

	xerrors "TokenPilot-Chain/internal/errors"
)

const testAddress = "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"

func TestResolveRawAddress(t *testing.T) {
	resolver := NewResolver(NewMemoryStore())

	owner, sub, err := resolver.Resolve(context.Background(), testAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner != testAddress {
		t.Fatalf("unexpected owner: %s", owner)
	}
	if sub != "" {
		t.Fatalf("raw address should not carry a sub account, got %q", sub)
	}
}

func TestResolveSavedAlias(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.Save(ctx, SavedAlias{Alias: "alice", Owner: testAddress}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resolver := NewResolver(store)
	owner, _, err := resolver.Resolve(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner != testAddress {
		t.Fatalf("unexpected owner: %s", owner)
	}
}

func TestResolveUnknownRecipient(t *testing.T) {
	resolver := NewResolver(NewMemoryStore())

	_, _, err := resolver.Resolve(context.Background(), "bob")
	if xerrors.CodeOf(err) != xerrors.CodeUnknownRecipient {
		t.Fatalf("expected UNKNOWN_RECIPIENT, got %v", err)
	}
}

func TestSaveLastWriteWins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	first := SavedAlias{Alias: "alice", Owner: testAddress}
	second := SavedAlias{Alias: "alice", Owner: "0x0000000000000000000000000000000000000001"}

	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Owner != "0x0000000000000000000000000000000000000001" {
		t.Fatalf("expected later write to win, got %s", saved.Owner)
	}
}

func TestNormalizeAliasRejectsBadInput(t *testing.T) {
	if _, err := NormalizeAlias(SavedAlias{Alias: "", Owner: testAddress}); xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected INVALID_ARGUMENT for empty alias, got %v", err)
	}
	if _, err := NormalizeAlias(SavedAlias{Alias: "alice", Owner: "not-an-address"}); xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected INVALID_ARGUMENT for bad owner, got %v", err)
	}
	if _, err := NormalizeAlias(SavedAlias{Alias: "alice", Owner: testAddress, SubAccount: "abcd"}); xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected INVALID_ARGUMENT for short sub account, got %v", err)
	}
}
