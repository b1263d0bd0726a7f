package tokenpilot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testOwner = "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"

func TestChatSendsOwnerHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if r.Header.Get(ownerHeader) != testOwner {
			t.Fatalf("expected owner header, got %q", r.Header.Get(ownerHeader))
		}
		var body struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("unexpected body: %v", err)
		}
		if body.Message != "send 5 CFX to alice" {
			t.Fatalf("unexpected message: %q", body.Message)
		}
		_ = json.NewEncoder(w).Encode(ChatReply{Reply: "drafted"})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, testOwner, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	reply, err := client.Chat(context.Background(), "send 5 CFX to alice")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply.Reply != "drafted" {
		t.Fatalf("unexpected reply: %q", reply.Reply)
	}
}

func TestListTransfersUsesLimitQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/transfers" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "5" {
			t.Fatalf("unexpected limit: %q", r.URL.Query().Get("limit"))
		}
		_ = json.NewEncoder(w).Encode([]TransferRecord{
			{IntentID: "i-1", Owner: testOwner, Result: "block 7"},
		})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, testOwner, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	records, err := client.ListTransfers(context.Background(), 5)
	if err != nil {
		t.Fatalf("list transfers: %v", err)
	}
	if len(records) != 1 || records[0].Result != "block 7" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestChatErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "DUPLICATE_EXECUTION",
			"message": "该意图已经执行过",
		})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, testOwner, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Chat(context.Background(), "#ABCD")
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != "DUPLICATE_EXECUTION" || apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestNewClientRequiresOwner(t *testing.T) {
	if _, err := NewClient("http://localhost:8080", "", nil); err == nil {
		t.Fatal("expected error for empty owner")
	}
}
