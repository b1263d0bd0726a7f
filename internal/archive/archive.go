package archive

import "context"

// Record 是一条已完成结算的转账留档。
type Record struct {
	IntentID   string `json:"intent_id"`
	Owner      string `json:"owner"`
	Checksum   string `json:"checksum"`
	Summary    string `json:"summary"`
	Result     string `json:"result"`
	ExecutedAt int64  `json:"executed_at"`
}

// Store 抽象转账留档的持久化接口。
type Store interface {
	Append(ctx context.Context, record Record) error
	List(ctx context.Context, owner string, limit int) ([]Record, error)
	Close() error
}
