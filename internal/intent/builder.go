package intent

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	xerrors "TokenPilot-Chain/internal/errors"
)

// DraftRequest 携带草拟一条意图所需的已解析输入。
// 金额必须已换算为最小单位，目标必须已解析为具体地址。
type DraftRequest struct {
	Owner   string
	Action  string
	To      string
	ToSub   string
	Symbol  string
	Ledger  string
	Amount  *big.Int
	Display string
	Memo    string
}

// Builder 负责把已解析的输入组装为带校验和的待执行意图并入库。
type Builder struct {
	store Store
	now   func() time.Time
}

// NewBuilder 构造草拟器。
func NewBuilder(store Store) *Builder {
	return &Builder{store: store, now: time.Now}
}

// Draft 生成一条新的 Pending 意图并写入三重索引。
// 摘要与校验和均由相同的规范化字段确定性导出。
func (b *Builder) Draft(ctx context.Context, req DraftRequest) (*Intent, error) {
	if req.Owner == "" || req.To == "" || req.Amount == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "草拟意图缺少必要字段")
	}

	createdAt := b.now().UnixNano()
	it := &Intent{
		ID:        uuid.NewString(),
		Owner:     req.Owner,
		Action:    req.Action,
		To:        req.To,
		ToSub:     req.ToSub,
		Symbol:    req.Symbol,
		Ledger:    req.Ledger,
		Amount:    new(big.Int).Set(req.Amount),
		Display:   req.Display,
		Memo:      req.Memo,
		CreatedAt: createdAt,
		Status:    StatusPending,
	}
	it.Summary = Summarize(it)
	it.Checksum = it.Recompute()

	if err := b.store.Put(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// Summarize 生成面向用户的一行摘要。
func Summarize(it *Intent) string {
	summary := fmt.Sprintf("Send %s %s to %s.", it.Display, it.Symbol, it.To)
	if it.Memo != "" {
		summary += fmt.Sprintf(" Memo: %s.", it.Memo)
	}
	return summary
}
