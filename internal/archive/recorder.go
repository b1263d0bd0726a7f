package archive

import (
	"context"
	"log/slog"

	"TokenPilot-Chain/internal/event"
	"TokenPilot-Chain/pkg/logger"
)

// Recorder 消费执行事件并把成功结算写入留档。
type Recorder struct {
	store    Store
	consumer event.Consumer
	workers  int
	logger   *slog.Logger
}

// NewRecorder 构造留档消费者。
func NewRecorder(store Store, consumer event.Consumer, workers int) *Recorder {
	if workers <= 0 {
		workers = 1
	}
	return &Recorder{store: store, consumer: consumer, workers: workers}
}

// Start 启动消费循环，阻塞直到上下文取消。
func (r *Recorder) Start(ctx context.Context) error {
	return r.consumer.Consume(ctx, r.workers, r.handle)
}

func (r *Recorder) handle(ctx context.Context, e event.Event) error {
	if e.Type != event.TypeIntentExecuted {
		return nil
	}
	record := Record{
		IntentID:   e.IntentID,
		Owner:      e.Owner,
		Checksum:   e.Checksum,
		Summary:    e.Summary,
		Result:     e.Result,
		ExecutedAt: e.Timestamp,
	}
	if err := r.store.Append(ctx, record); err != nil {
		r.log().Error("写入转账留档失败",
			slog.String("intent_id", e.IntentID),
			slog.Any("error", err))
		return err
	}
	return nil
}

func (r *Recorder) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return logger.L()
}
