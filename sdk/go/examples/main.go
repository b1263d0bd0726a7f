package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"TokenPilot-Chain/sdk/go/tokenpilot"
)

// 该示例启动一个模拟 API 并演示 SDK 的基本用法：
// 保存收款人别名、发起一轮对话、查询留档。
func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var alias tokenpilot.SavedAlias
			_ = json.NewDecoder(r.Body).Decode(&alias)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(alias)
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode([]tokenpilot.SavedAlias{
				{Alias: "alice", Owner: "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"},
			})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tokenpilot.ChatReply{
			Reply: "Send 5 CFX to alice. Reply with #K3J7 within 5 minutes to confirm.",
		})
	})
	mux.HandleFunc("/api/v1/transfers", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]tokenpilot.TransferRecord{
			{IntentID: "demo-intent", Summary: "Send 5 CFX to alice.", Result: "block 42"},
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := tokenpilot.NewClient(srv.URL, "0x0000000000000000000000000000000000000A11", srv.Client())
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	saved, err := client.SaveAccount(ctx, tokenpilot.SavedAlias{
		Alias: "alice",
		Owner: "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
	})
	if err != nil {
		panic(err)
	}
	fmt.Printf("saved alias %s -> %s\n", saved.Alias, saved.Owner)

	reply, err := client.Chat(ctx, "send 5 CFX to alice")
	if err != nil {
		panic(err)
	}
	fmt.Printf("assistant: %s\n", reply.Reply)

	records, err := client.ListTransfers(ctx, 10)
	if err != nil {
		panic(err)
	}
	for _, record := range records {
		fmt.Printf("archived: %s (%s)\n", record.Summary, record.Result)
	}
}
