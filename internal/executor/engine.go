package executor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	xerrors "TokenPilot-Chain/internal/errors"
	"TokenPilot-Chain/internal/event"
	"TokenPilot-Chain/internal/intent"
	"TokenPilot-Chain/internal/ledger"
	"TokenPilot-Chain/internal/observability/alerting"
	"TokenPilot-Chain/pkg/logger"
)

// Engine 保证每条已确认意图至多执行一次。
// 检查-调用-登记序列按校验和串行化，失败不改变任何状态，可重试。
type Engine struct {
	store    intent.Store
	guard    intent.ReplayGuard
	ledger   ledger.Client
	producer event.Producer
	alerter  alerting.Dispatcher
	logger   *slog.Logger

	locks sync.Map // checksum -> *sync.Mutex
}

// Option 定义可选配置。
type Option func(*Engine)

// WithEventProducer 配置事件投递。
func WithEventProducer(producer event.Producer) Option {
	return func(e *Engine) {
		e.producer = producer
	}
}

// WithAlertDispatcher 配置告警派发器。
func WithAlertDispatcher(dispatcher alerting.Dispatcher) Option {
	return func(e *Engine) {
		e.alerter = dispatcher
	}
}

// WithLogger 指定日志输出。
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = log
	}
}

// NewEngine 构造执行引擎。
func NewEngine(store intent.Store, guard intent.ReplayGuard, client ledger.Client, opts ...Option) *Engine {
	e := &Engine{store: store, guard: guard, ledger: client}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Execute 对一条已确认的意图执行结算。
// 顺序必须是：查重放集合 → 调用账本 → 登记校验和并标记终态。
// 校验和只在账本调用成功后写入，失败的调用保持意图可确认、可重试。
func (e *Engine) Execute(ctx context.Context, it *intent.Intent) (string, error) {
	if e.store == nil || e.guard == nil || e.ledger == nil {
		return "", xerrors.New(xerrors.CodeInitializationFailure, "执行引擎未初始化")
	}

	lock := e.lockFor(it.Checksum)
	lock.Lock()
	defer lock.Unlock()

	seen, err := e.guard.Contains(ctx, it.Checksum)
	if err != nil {
		return "", err
	}
	if seen {
		return "", xerrors.New(xerrors.CodeDuplicateExecution, "意图已执行，拒绝重放",
			xerrors.WithMetadata("checksum", it.Checksum))
	}

	// 转出方取自意图记录的所有者，不从当前调用者重新推导。
	result, err := e.ledger.Transfer(ctx, ledger.TransferRequest{
		Source:      it.Owner,
		Destination: it.To,
		DestSub:     it.ToSub,
		Ledger:      it.Ledger,
		Amount:      it.Amount,
		Memo:        it.Memo,
		CreatedAt:   it.CreatedAt,
	})
	if err != nil {
		e.log().Error("账本结算失败",
			slog.String("intent_id", it.ID),
			slog.String("checksum", it.Checksum),
			slog.Any("error", err))
		e.emitAlert(ctx, it, err)
		e.publish(ctx, event.Event{
			Type:     event.TypeExecutionFailed,
			Owner:    it.Owner,
			IntentID: it.ID,
			Checksum: it.Checksum,
			Reason:   err.Error(),
		})
		return "", err
	}

	if err := e.guard.Add(ctx, it.Checksum); err != nil {
		// 账本已结算但登记失败：记录告警，仍然返回成功。
		e.log().Error("登记重放集合失败",
			slog.String("intent_id", it.ID),
			slog.Any("error", err))
		e.emitAlert(ctx, it, err)
	}
	if err := e.store.MarkExecuted(ctx, it.ID, result); err != nil {
		e.log().Error("标记意图终态失败",
			slog.String("intent_id", it.ID),
			slog.Any("error", err))
	}

	e.publish(ctx, event.Event{
		Type:     event.TypeIntentExecuted,
		Owner:    it.Owner,
		IntentID: it.ID,
		Checksum: it.Checksum,
		Summary:  it.Summary,
		Result:   result,
	})
	e.log().Info("意图执行成功",
		slog.String("intent_id", it.ID),
		slog.String("checksum", it.Checksum),
		slog.String("result", result))
	return result, nil
}

func (e *Engine) lockFor(checksum string) *sync.Mutex {
	actual, _ := e.locks.LoadOrStore(checksum, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func (e *Engine) publish(ctx context.Context, ev event.Event) {
	if e.producer == nil {
		return
	}
	if err := e.producer.Publish(ctx, ev); err != nil {
		e.log().Warn("事件投递失败", slog.String("type", string(ev.Type)), slog.Any("error", err))
	}
}

func (e *Engine) emitAlert(ctx context.Context, it *intent.Intent, cause error) {
	if e.alerter == nil || !xerrors.ShouldAlert(cause) {
		return
	}
	notifyErr := e.alerter.Notify(ctx, alerting.Event{
		Code:       xerrors.CodeOf(cause),
		Message:    cause.Error(),
		Severity:   xerrors.SeverityOf(cause),
		Owner:      it.Owner,
		IntentID:   it.ID,
		Checksum:   it.Checksum,
		OccurredAt: time.Now(),
	})
	if notifyErr != nil {
		e.log().Warn("发送告警失败", slog.Any("error", notifyErr))
	}
}

func (e *Engine) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return logger.L()
}
