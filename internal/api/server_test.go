package api

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"TokenPilot-Chain/internal/account"
	"TokenPilot-Chain/internal/archive"
	"TokenPilot-Chain/internal/asset"
	"TokenPilot-Chain/internal/catalog"
	"TokenPilot-Chain/internal/executor"
	"TokenPilot-Chain/internal/intent"
	"TokenPilot-Chain/internal/ledger/mock"
	"TokenPilot-Chain/internal/planner"
	"TokenPilot-Chain/internal/session"
)

const testOwner = "0x0000000000000000000000000000000000000A11"

// echoPlanner 固定返回一句话，驱动会话层走完整流程。
type echoPlanner struct{}

func (echoPlanner) Complete(_ context.Context, _ []planner.Message, _ []planner.Tool) (*planner.Completion, error) {
	return &planner.Completion{Content: "hello"}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	allowlist, err := asset.NewAllowlist([]asset.Token{
		{Symbol: "CFX", Ledger: "cfx-espace", Decimals: 9},
	}, "CFX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	accountStore := account.NewMemoryStore()
	store := intent.NewMemoryStore()
	secret, err := intent.NewSecret()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gate := intent.NewCodeGate(store, secret, intent.DefaultCodeTTL, intent.DefaultCodeLength)

	l := mock.NewLedger()
	l.Mint("cfx-espace", testOwner, big.NewInt(1_000_000))
	engine := executor.NewEngine(store, intent.NewMemoryReplayGuard(), l)
	registry := catalog.NewRegistry(catalog.ActionSpec{Name: "transfer", Description: "send tokens"})

	controller := session.NewController(echoPlanner{}, registry, allowlist, accountStore, store, gate, engine)
	return NewServer(":0", controller, accountStore, archive.NewMemoryStore())
}

func TestChatRequiresOwner(t *testing.T) {
	server := newTestServer(t)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/v1/chat", "application/json", strings.NewReader(`{"message":"hi"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without owner header, got %d", resp.StatusCode)
	}
}

func TestChatRoundTrip(t *testing.T) {
	server := newTestServer(t)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/chat", strings.NewReader(`{"message":"hi"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ownerHeader, testOwner)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["reply"] != "hello" {
		t.Fatalf("unexpected reply: %q", body["reply"])
	}
}

func TestAccountsEndpoint(t *testing.T) {
	server := newTestServer(t)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	payload := `{"alias":"alice","owner":"0x71C7656EC7ab88b098defB751B7401B5f6d8976F"}`
	resp, err := http.Post(ts.URL+"/api/v1/accounts", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/v1/accounts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	var aliases []account.SavedAlias
	if err := json.NewDecoder(resp.Body).Decode(&aliases); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(aliases) != 1 || aliases[0].Alias != "alice" {
		t.Fatalf("unexpected aliases: %+v", aliases)
	}
}

func TestStatsEndpoint(t *testing.T) {
	server := newTestServer(t)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/intents/stats")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["pending_intents"] != 0 {
		t.Fatalf("unexpected pending count: %d", body["pending_intents"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		t.Fatalf("unexpected content type: %q", resp.Header.Get("Content-Type"))
	}
}
