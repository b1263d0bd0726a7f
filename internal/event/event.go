package event

import (
	"context"
	"time"
)

// Type 枚举引擎对外广播的事件种类。
type Type string

const (
	TypeIntentDrafted   Type = "intent.drafted"
	TypeIntentExecuted  Type = "intent.executed"
	TypeExecutionFailed Type = "execution.failed"
	TypeAliasSaved      Type = "alias.saved"
)

// Event 是引擎投递到队列的事件载荷。
type Event struct {
	Type      Type   `json:"type"`
	Owner     string `json:"owner"`
	IntentID  string `json:"intent_id,omitempty"`
	Checksum  string `json:"checksum,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Result    string `json:"result,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Stamp 补齐事件时间戳。
func Stamp(e Event) Event {
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().Unix()
	}
	return e
}

// Handler 处理来自队列的事件。
type Handler func(ctx context.Context, e Event) error

// Producer 负责向队列投递事件。
type Producer interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Consumer 负责从队列中消费事件。
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Queue 同时具备生产者与消费者能力。
type Queue interface {
	Producer
	Consumer
}
