package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"TokenPilot-Chain/internal/account"
	"TokenPilot-Chain/internal/archive"
	xerrors "TokenPilot-Chain/internal/errors"
	"TokenPilot-Chain/internal/identity"
	"TokenPilot-Chain/internal/observability/metrics"
	"TokenPilot-Chain/internal/session"
)

// ownerHeader 携带调用者身份。身份认证由部署层负责，见配置说明。
const ownerHeader = "X-Owner"

// Server 负责暴露 REST 接口，供外部驱动转账会话。
type Server struct {
	addr       string
	controller *session.Controller
	accounts   account.Store
	transfers  archive.Store
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, controller *session.Controller, accounts account.Store, transfers archive.Store) *Server {
	return &Server{addr: addr, controller: controller, accounts: accounts, transfers: transfers}
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Handler 返回完整路由，独立暴露以便测试。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/chat", s.instrument("chat", s.handleChat))
	mux.HandleFunc("/api/v1/accounts", s.instrument("accounts", s.handleAccounts))
	mux.HandleFunc("/api/v1/transfers", s.instrument("transfers", s.handleTransfers))
	mux.HandleFunc("/api/v1/intents/stats", s.instrument("stats", s.handleStats))
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// statusRecorder 捕获响应码用于打点。
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(name string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		handler(recorder, r)
		metrics.ObserveHTTPRequest(name, r.Method, recorder.status, time.Since(start))
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	owner := strings.TrimSpace(r.Header.Get(ownerHeader))
	if owner == "" {
		writeError(w, xerrors.New(xerrors.CodeInvalidArgument, "缺少 "+ownerHeader+" 请求头"))
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "请求体解析失败"))
		return
	}

	ctx := identity.WithOwner(r.Context(), owner)
	reply, err := s.controller.SubmitTurn(ctx, owner, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var saved account.SavedAlias
		if err := json.NewDecoder(r.Body).Decode(&saved); err != nil {
			writeError(w, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "请求体解析失败"))
			return
		}
		if err := s.accounts.Save(r.Context(), saved); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	case http.MethodGet:
		aliases, err := s.accounts.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, aliases)
	default:
		http.Error(w, "仅支持 GET/POST", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	if s.transfers == nil {
		writeError(w, xerrors.New(xerrors.CodeInitializationFailure, "转账留档未启用"))
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	records, err := s.transfers.List(r.Context(), strings.TrimSpace(r.Header.Get(ownerHeader)), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []archive.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleStats 暴露待确认意图数量，仅供观测，无任何行为影响。
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"pending_intents": s.controller.PendingCount(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError 按错误码映射 HTTP 状态，并透出结构化错误信息。
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := map[string]any{"code": string(xerrors.CodeOf(err))}
	if e, ok := xerrors.From(err); ok {
		body["message"] = e.Message()
		if meta := e.Metadata(); meta != nil {
			body["metadata"] = meta
		}
		switch e.Code() {
		case xerrors.CodeInvalidArgument, xerrors.CodeUnknownAsset,
			xerrors.CodeTooManyDecimals, xerrors.CodeUnknownRecipient:
			status = http.StatusBadRequest
		case xerrors.CodeNoPendingIntent, xerrors.CodeNoMatchingCode:
			status = http.StatusNotFound
		case xerrors.CodeDuplicateExecution:
			status = http.StatusConflict
		case xerrors.CodeInitializationFailure:
			status = http.StatusServiceUnavailable
		}
	} else if err != nil {
		body["message"] = err.Error()
	}
	writeJSON(w, status, body)
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
