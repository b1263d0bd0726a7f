package tokenpilot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client. It is intentionally short to avoid hanging network calls.
const DefaultHTTPTimeout = 15 * time.Second

// ownerHeader carries the caller identity on every request.
const ownerHeader = "X-Owner"

// Client wraps the HTTP interactions with the TokenPilot Chain REST API.
// All requests are issued on behalf of a single owner address.
type Client struct {
	baseURL    *url.URL
	owner      string
	httpClient *http.Client
}

// ChatReply is the assistant's answer to one conversational turn.
type ChatReply struct {
	Reply string `json:"reply"`
}

// SavedAlias is a recipient bookmark stored server side.
type SavedAlias struct {
	Alias      string `json:"alias"`
	Owner      string `json:"owner"`
	SubAccount string `json:"sub_account,omitempty"`
}

// TransferRecord is one archived settled transfer.
type TransferRecord struct {
	IntentID   string `json:"intent_id"`
	Owner      string `json:"owner"`
	Checksum   string `json:"checksum"`
	Summary    string `json:"summary"`
	Result     string `json:"result"`
	ExecutedAt int64  `json:"executed_at"`
}

// IntentStats reports counters about the intent store.
type IntentStats struct {
	PendingIntents int `json:"pending_intents"`
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("tokenpilot api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("tokenpilot api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the TokenPilot Chain API. When
// httpClient is nil, a default client with a sensible timeout is used.
func NewClient(rawURL, owner string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if owner == "" {
		return nil, errors.New("tokenpilot: owner address is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, owner: owner, httpClient: httpClient}, nil
}

// Chat submits one user message and returns the assistant reply. Drafting,
// confirmation and execution all flow through this single endpoint.
func (c *Client) Chat(ctx context.Context, message string) (ChatReply, error) {
	var reply ChatReply
	payload := struct {
		Message string `json:"message"`
	}{Message: message}
	if err := c.post(ctx, "/api/v1/chat", payload, &reply); err != nil {
		return ChatReply{}, err
	}
	return reply, nil
}

// SaveAccount stores a recipient bookmark. Saving an existing alias
// overwrites it.
func (c *Client) SaveAccount(ctx context.Context, alias SavedAlias) (SavedAlias, error) {
	var saved SavedAlias
	if err := c.post(ctx, "/api/v1/accounts", alias, &saved); err != nil {
		return SavedAlias{}, err
	}
	return saved, nil
}

// ListAccounts returns every stored recipient bookmark.
func (c *Client) ListAccounts(ctx context.Context) ([]SavedAlias, error) {
	var aliases []SavedAlias
	if err := c.get(ctx, "/api/v1/accounts", &aliases); err != nil {
		return nil, err
	}
	return aliases, nil
}

// ListTransfers returns up to limit archived transfers for the client owner,
// newest first. A non positive limit uses the server default.
func (c *Client) ListTransfers(ctx context.Context, limit int) ([]TransferRecord, error) {
	endpoint := "/api/v1/transfers"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}
	var records []TransferRecord
	if err := c.get(ctx, endpoint, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Stats fetches intent store counters.
func (c *Client) Stats(ctx context.Context) (IntentStats, error) {
	var stats IntentStats
	if err := c.get(ctx, "/api/v1/intents/stats", &stats); err != nil {
		return IntentStats{}, err
	}
	return stats, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	rel := &url.URL{Path: path.Join(c.baseURL.Path, parsed.Path), RawQuery: parsed.RawQuery}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(ownerHeader, c.owner)
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr APIError
		apiErr.StatusCode = resp.StatusCode
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, &apiErr)
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return &apiErr
	}

	if out == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
