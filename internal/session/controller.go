package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"TokenPilot-Chain/internal/account"
	"TokenPilot-Chain/internal/asset"
	"TokenPilot-Chain/internal/catalog"
	xerrors "TokenPilot-Chain/internal/errors"
	"TokenPilot-Chain/internal/event"
	"TokenPilot-Chain/internal/executor"
	"TokenPilot-Chain/internal/intent"
	"TokenPilot-Chain/internal/planner"
	"TokenPilot-Chain/pkg/logger"
)

// DefaultMaxRounds 是单轮对话允许的规划往返次数上限。
const DefaultMaxRounds = 6

const systemInstruction = "You are a token transfer assistant. " +
	"Use the provided tools to draft and confirm transfers; never invent balances or results. " +
	"Every transfer needs an explicit user confirmation before it executes."

// Controller 驱动单轮对话：先走确认闸门快捷路径，
// 未命中时进入有界的规划-动作循环。
type Controller struct {
	planner      planner.Client
	catalog      catalog.Catalog
	assets       *asset.Allowlist
	accounts     *account.Resolver
	accountStore account.Store
	store        intent.Store
	builder      *intent.Builder
	gate         intent.Gate
	engine       *executor.Engine
	producer     event.Producer
	logger       *slog.Logger

	maxRounds   int
	maxMessages int

	mu        sync.Mutex
	histories map[string][]planner.Message
}

// Option 定义可选配置。
type Option func(*Controller)

// WithMaxRounds 设置规划循环上限。
func WithMaxRounds(rounds int) Option {
	return func(c *Controller) {
		if rounds > 0 {
			c.maxRounds = rounds
		}
	}
}

// WithMaxMessages 设置上下文窗口大小。
func WithMaxMessages(max int) Option {
	return func(c *Controller) {
		if max > 0 {
			c.maxMessages = max
		}
	}
}

// WithEventProducer 配置事件投递。
func WithEventProducer(producer event.Producer) Option {
	return func(c *Controller) {
		c.producer = producer
	}
}

// WithLogger 指定日志输出。
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = log
	}
}

// NewController 构造会话控制器。
func NewController(
	plannerClient planner.Client,
	actionCatalog catalog.Catalog,
	assets *asset.Allowlist,
	accountStore account.Store,
	store intent.Store,
	gate intent.Gate,
	engine *executor.Engine,
	opts ...Option,
) *Controller {
	c := &Controller{
		planner:      plannerClient,
		catalog:      actionCatalog,
		assets:       assets,
		accounts:     account.NewResolver(accountStore),
		accountStore: accountStore,
		store:        store,
		builder:      intent.NewBuilder(store),
		gate:         gate,
		engine:       engine,
		maxRounds:    DefaultMaxRounds,
		maxMessages:  DefaultMaxMessages,
		histories:    make(map[string][]planner.Message),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// SubmitTurn 处理一轮用户输入并返回回复文本。
// 确认闸门优先于规划器：命中即执行，未命中按正常草拟流程继续。
func (c *Controller) SubmitTurn(ctx context.Context, owner, text string) (string, error) {
	if strings.TrimSpace(owner) == "" {
		return "", xerrors.New(xerrors.CodeInvalidArgument, "缺少调用者身份",
			xerrors.WithMetadata("field", "owner"))
	}
	lang := DetectLanguage(text)

	if c.gate.ConfirmsRawText() {
		if reply, handled := c.tryConfirm(ctx, owner, text, lang); handled {
			return reply, nil
		}
	}
	return c.planTurn(ctx, owner, text, lang)
}

// tryConfirm 尝试把本轮输入当作确认处理。
// 未命中（首次请求）不是错误，交还给规划流程。
func (c *Controller) tryConfirm(ctx context.Context, owner, text string, lang Language) (string, bool) {
	it, err := c.gate.Match(ctx, owner, intent.Confirmation{Text: text})
	if err != nil {
		switch xerrors.CodeOf(err) {
		case xerrors.CodeNoPendingIntent, xerrors.CodeNoMatchingCode:
			return "", false
		case xerrors.CodeDuplicateExecution:
			return sayDuplicate(lang), true
		default:
			return sayFailure(lang, failureReason(err)), true
		}
	}

	result, err := c.engine.Execute(ctx, it)
	if err != nil {
		if xerrors.CodeOf(err) == xerrors.CodeDuplicateExecution {
			return sayDuplicate(lang), true
		}
		return sayFailure(lang, failureReason(err)), true
	}
	c.log().Info("确认命中并执行",
		slog.String("owner", owner),
		slog.String("intent_id", it.ID))
	return sayExecuted(lang, it.Summary, result), true
}

// planTurn 进入有界的规划循环。
// 超出轮次上限时返回规划器最后产出的内容，只终止本轮，不影响进程。
func (c *Controller) planTurn(ctx context.Context, owner, text string, lang Language) (string, error) {
	history := c.appendHistory(owner, planner.Message{Role: planner.RoleUser, Content: text})
	tools := toolDefinitions()

	var drafted *intent.Intent
	reply := ""
	for round := 0; round < c.maxRounds; round++ {
		// 语言锁定指令只对当前轮次生效，不进入历史。
		turnContext := append(append([]planner.Message{}, history...),
			planner.Message{Role: planner.RoleSystem, Content: languageGuard(lang)})

		completion, err := c.planner.Complete(ctx, turnContext, tools)
		if err != nil {
			return "", err
		}

		if len(completion.ToolCalls) == 0 {
			reply = completion.Content
			history = c.appendHistory(owner, planner.Message{Role: planner.RoleAssistant, Content: reply})
			break
		}

		history = c.appendHistory(owner, planner.Message{
			Role:      planner.RoleAssistant,
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})
		if completion.Content != "" {
			reply = completion.Content
		}
		for _, call := range completion.ToolCalls {
			outcome := c.dispatchTool(ctx, owner, text, call)
			if outcome.drafted != nil {
				drafted = outcome.drafted
			}
			// 结果带上调用 ID，规划器据此关联同轮多个调用。
			history = c.appendHistory(owner, planner.Message{
				Role:       planner.RoleTool,
				ToolCallID: call.ID,
				Content:    outcome.payload,
			})
		}
	}

	if reply == "" && drafted != nil {
		reply = drafted.Summary
	}
	if reply == "" {
		c.log().Warn("规划循环达到上限且无最终回复", slog.String("owner", owner))
		reply = sayFailure(lang, "planner produced no final reply.")
	}
	// 草拟发生后，将确认提示附在回复末尾。
	if drafted != nil {
		challenge := c.gate.Challenge(drafted)
		if challenge != "" && !strings.Contains(reply, challenge) {
			reply = strings.TrimSpace(reply) + "\n" + challenge
		}
	}
	return reply, nil
}

// appendHistory 追加消息并裁剪窗口，返回裁剪后的副本。
func (c *Controller) appendHistory(owner string, msg planner.Message) []planner.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	history := c.histories[owner]
	if len(history) == 0 {
		history = append(history, planner.Message{Role: planner.RoleSystem, Content: systemInstruction})
	}
	history = append(history, msg)
	history = TrimWindow(history, c.maxMessages)
	c.histories[owner] = history
	return append([]planner.Message{}, history...)
}

// PendingCount 暴露待确认意图数量，仅用于观测。
func (c *Controller) PendingCount(ctx context.Context) int {
	return c.store.PendingCount(ctx)
}

func (c *Controller) publish(ctx context.Context, ev event.Event) {
	if c.producer == nil {
		return
	}
	if err := c.producer.Publish(ctx, ev); err != nil {
		c.log().Warn("事件投递失败", slog.String("type", string(ev.Type)), slog.Any("error", err))
	}
}

func (c *Controller) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return logger.L()
}
