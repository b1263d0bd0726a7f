package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	xerrors "TokenPilot-Chain/internal/errors"
)

func TestRegistryLastWriteWins(t *testing.T) {
	registry := NewRegistry(
		ActionSpec{Name: "transfer", Description: "first"},
		ActionSpec{Name: "transfer", Description: "second"},
	)

	action, err := registry.Get(context.Background(), "transfer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action.Description != "second" {
		t.Fatalf("expected later registration to win, got %q", action.Description)
	}

	manifest, err := registry.Manifest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(manifest) != 1 {
		t.Fatalf("duplicate registration should not duplicate manifest entries: %d", len(manifest))
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Get(context.Background(), "missing")
	if xerrors.CodeOf(err) != xerrors.CodeCatalogFailure {
		t.Fatalf("expected CATALOG_FAILURE, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.json")
	payload := `[{"name":"transfer","description":"send tokens","args_schema":"{\"to\":\"string\"}"}]`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	registry, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	action, err := registry.Get(context.Background(), "transfer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action.Description != "send tokens" {
		t.Fatalf("unexpected description: %q", action.Description)
	}
}
