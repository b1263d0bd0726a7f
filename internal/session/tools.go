package session

import (
	"context"
	"encoding/json"
	"strings"

	"TokenPilot-Chain/internal/account"
	"TokenPilot-Chain/internal/asset"
	xerrors "TokenPilot-Chain/internal/errors"
	"TokenPilot-Chain/internal/event"
	"TokenPilot-Chain/internal/intent"
	"TokenPilot-Chain/internal/observability/metrics"
	"TokenPilot-Chain/internal/planner"
)

// 引擎向规划器公开的动作名。
const (
	toolPlanTransfer    = "plan_transfer"
	toolConfirmTransfer = "confirm_transfer"
	toolSaveAccount     = "save_account"
	toolListAccounts    = "list_accounts"
)

// 规划器常用的占位输出，视为缺失字段而非有效值。
var placeholders = map[string]struct{}{
	"":        {},
	"-":       {},
	"unknown": {},
	"tbd":     {},
	"null":    {},
	"?":       {},
	"n/a":     {},
}

func isPlaceholder(value string) bool {
	_, ok := placeholders[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// toolDefinitions 返回固定的工具清单，参数模式内联为 JSON Schema。
func toolDefinitions() []planner.Tool {
	return []planner.Tool{
		{
			Name:        toolPlanTransfer,
			Description: "Draft a token transfer for user review. Requires a destination and a decimal amount.",
			Parameters: json.RawMessage(`{"type":"object","properties":{` +
				`"to":{"type":"string","description":"saved alias or hex address"},` +
				`"amount":{"type":"string","description":"decimal amount, e.g. 0.5"},` +
				`"symbol":{"type":"string"},` +
				`"ledger":{"type":"string"},` +
				`"memo":{"type":"string"}},"required":["to","amount"]}`),
		},
		{
			Name:        toolConfirmTransfer,
			Description: "Confirm a previously drafted transfer. Echo the checksum or the full intent shown to you.",
			Parameters: json.RawMessage(`{"type":"object","properties":{` +
				`"checksum":{"type":"string"},` +
				`"intent":{"type":"object"}}}`),
		},
		{
			Name:        toolSaveAccount,
			Description: "Save a recipient bookmark: alias plus hex address and optional sub account.",
			Parameters: json.RawMessage(`{"type":"object","properties":{` +
				`"alias":{"type":"string"},` +
				`"owner":{"type":"string"},` +
				`"sub":{"type":"string"}},"required":["alias","owner"]}`),
		},
		{
			Name:        toolListAccounts,
			Description: "List the saved recipient bookmarks.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
		},
	}
}

// toolResult 是一次工具调用的结构化结果。
type toolResult struct {
	payload string
	drafted *intent.Intent
}

// okEnvelope 序列化成功结果。
func okEnvelope(data map[string]any) string {
	body := map[string]any{"status": "ok"}
	for k, v := range data {
		body[k] = v
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return `{"status":"ok"}`
	}
	return string(encoded)
}

// errEnvelope 把统一错误转成规划器可以自我修正的结构化结果。
// metadata 中的 field/options/example 原样透出。
func errEnvelope(err error) string {
	body := map[string]any{
		"status": "err",
		"code":   string(xerrors.CodeOf(err)),
	}
	if e, ok := xerrors.From(err); ok {
		body["message"] = e.Message()
		for key, value := range e.Metadata() {
			switch key {
			case "options":
				body["options"] = strings.Split(value, ",")
			default:
				body[key] = value
			}
		}
	} else if err != nil {
		body["message"] = err.Error()
	}
	encoded, marshalErr := json.Marshal(body)
	if marshalErr != nil {
		return `{"status":"err","code":"UNKNOWN"}`
	}
	return string(encoded)
}

// dispatchTool 执行一次规划器发起的动作调用。
// userText 是本轮用户原文，供口令策略的确认闸门使用。
func (c *Controller) dispatchTool(ctx context.Context, owner, userText string, call planner.ToolCall) toolResult {
	switch call.Name {
	case toolPlanTransfer:
		return c.handlePlanTransfer(ctx, owner, call.Arguments)
	case toolConfirmTransfer:
		return c.handleConfirmTransfer(ctx, owner, userText, call.Arguments)
	case toolSaveAccount:
		return c.handleSaveAccount(ctx, owner, call.Arguments)
	case toolListAccounts:
		return c.handleListAccounts(ctx)
	default:
		return toolResult{payload: errEnvelope(xerrors.New(xerrors.CodeInvalidArgument,
			"未知动作 '"+call.Name+"'", xerrors.WithMetadata("field", "tool")))}
	}
}

func (c *Controller) handlePlanTransfer(ctx context.Context, owner string, raw json.RawMessage) toolResult {
	var args struct {
		To     string `json:"to"`
		Amount string `json:"amount"`
		Symbol string `json:"symbol"`
		Ledger string `json:"ledger"`
		Memo   string `json:"memo"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return toolResult{payload: errEnvelope(xerrors.Wrap(xerrors.CodeInvalidArgument, err, "动作参数不是合法 JSON"))}
	}
	if isPlaceholder(args.To) {
		return toolResult{payload: errEnvelope(xerrors.New(xerrors.CodeInvalidArgument,
			"缺少转账目标", xerrors.WithMetadata("field", "to")))}
	}
	if isPlaceholder(args.Amount) {
		return toolResult{payload: errEnvelope(xerrors.New(xerrors.CodeInvalidArgument,
			"缺少转账金额", xerrors.WithMetadata("field", "amount"),
			xerrors.WithMetadata("example", "0.5")))}
	}

	// 动作必须在目录中注册。
	action, err := c.catalog.Get(ctx, "transfer")
	if err != nil {
		return toolResult{payload: errEnvelope(err)}
	}

	token, err := c.assets.Resolve(args.Symbol, args.Ledger)
	if err != nil {
		return toolResult{payload: errEnvelope(err)}
	}
	amount, err := asset.ScaleAmount(args.Amount, token.Decimals)
	if err != nil {
		return toolResult{payload: errEnvelope(err)}
	}
	destination, destSub, err := c.accounts.Resolve(ctx, args.To)
	if err != nil {
		return toolResult{payload: errEnvelope(err)}
	}

	it, err := c.builder.Draft(ctx, intent.DraftRequest{
		Owner:   owner,
		Action:  action.Name,
		To:      destination,
		ToSub:   destSub,
		Symbol:  token.Symbol,
		Ledger:  token.Ledger,
		Amount:  amount,
		Display: strings.TrimSpace(args.Amount),
		Memo:    strings.TrimSpace(args.Memo),
	})
	if err != nil {
		return toolResult{payload: errEnvelope(err)}
	}

	metrics.ObserveIntent("drafted")
	c.publish(ctx, event.Event{
		Type:     event.TypeIntentDrafted,
		Owner:    owner,
		IntentID: it.ID,
		Checksum: it.Checksum,
		Summary:  it.Summary,
	})

	return toolResult{
		drafted: it,
		payload: okEnvelope(map[string]any{
			"intent_id": it.ID,
			"summary":   it.Summary,
			"checksum":  it.Checksum,
			"challenge": c.gate.Challenge(it),
		}),
	}
}

func (c *Controller) handleConfirmTransfer(ctx context.Context, owner, userText string, raw json.RawMessage) toolResult {
	var args struct {
		Checksum string          `json:"checksum"`
		Intent   json.RawMessage `json:"intent"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return toolResult{payload: errEnvelope(xerrors.Wrap(xerrors.CodeInvalidArgument, err, "动作参数不是合法 JSON"))}
	}

	it, err := c.gate.Match(ctx, owner, intent.Confirmation{
		Payload:  args.Intent,
		Checksum: strings.TrimSpace(args.Checksum),
		Text:     userText,
	})
	if err != nil {
		return toolResult{payload: errEnvelope(err)}
	}

	result, err := c.engine.Execute(ctx, it)
	if err != nil {
		metrics.ObserveIntent("failed")
		return toolResult{payload: errEnvelope(err)}
	}
	metrics.ObserveIntent("executed")
	return toolResult{
		payload: okEnvelope(map[string]any{
			"summary": it.Summary,
			"result":  result,
		}),
	}
}

func (c *Controller) handleSaveAccount(ctx context.Context, owner string, raw json.RawMessage) toolResult {
	var args struct {
		Alias string `json:"alias"`
		Owner string `json:"owner"`
		Sub   string `json:"sub"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return toolResult{payload: errEnvelope(xerrors.Wrap(xerrors.CodeInvalidArgument, err, "动作参数不是合法 JSON"))}
	}

	saved := account.SavedAlias{Alias: args.Alias, Owner: args.Owner, SubAccount: args.Sub}
	if err := c.accountStore.Save(ctx, saved); err != nil {
		return toolResult{payload: errEnvelope(err)}
	}

	c.publish(ctx, event.Event{
		Type:    event.TypeAliasSaved,
		Owner:   owner,
		Summary: args.Alias,
	})
	return toolResult{payload: okEnvelope(map[string]any{"alias": args.Alias})}
}

func (c *Controller) handleListAccounts(ctx context.Context) toolResult {
	aliases, err := c.accountStore.List(ctx)
	if err != nil {
		return toolResult{payload: errEnvelope(err)}
	}
	return toolResult{payload: okEnvelope(map[string]any{"accounts": aliases})}
}
