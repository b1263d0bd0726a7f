package intent

import (
	"context"
	"encoding/json"
	"fmt"

	xerrors "TokenPilot-Chain/internal/errors"
)

// ChecksumGate 实现校验和回显策略：持有意图内容本身即视为确认信号。
// 匹配优先级：完整负载 > 裸校验和 > 调用者最近一条 Pending 意图。
type ChecksumGate struct {
	store Store
}

// NewChecksumGate 构造校验和闸门。
func NewChecksumGate(store Store) *ChecksumGate {
	return &ChecksumGate{store: store}
}

// Challenge 实现 Gate 接口。
func (g *ChecksumGate) Challenge(it *Intent) string {
	return fmt.Sprintf("Reply with checksum %s to confirm.", it.Checksum)
}

// ConfirmsRawText 实现 Gate 接口：校验和策略的确认经由规划器回显，
// 不对用户原文做匹配。
func (g *ChecksumGate) ConfirmsRawText() bool { return false }

// Match 实现 Gate 接口。完整负载只做结构校验后经校验和索引
// 换取库内的权威副本，从不直接信任外部回传的字段。
func (g *ChecksumGate) Match(ctx context.Context, owner string, conf Confirmation) (*Intent, error) {
	if len(conf.Payload) > 0 {
		var echoed Intent
		if err := json.Unmarshal(conf.Payload, &echoed); err != nil || echoed.Checksum == "" {
			return nil, xerrors.New(xerrors.CodeInvalidArgument, "意图负载不合法",
				xerrors.WithMetadata("field", "intent"))
		}
		return g.byChecksum(ctx, owner, echoed.Checksum)
	}
	if conf.Checksum != "" {
		return g.byChecksum(ctx, owner, conf.Checksum)
	}

	it, ok := g.store.LastByOwner(ctx, owner)
	if !ok || it.Status != StatusPending {
		return nil, xerrors.New(xerrors.CodeNoPendingIntent, "当前没有待确认的意图")
	}
	return it, nil
}

// byChecksum 不过滤已执行的意图：重复确认交由执行引擎以
// DUPLICATE_EXECUTION 拒绝，而不是误判为无待确认意图。
func (g *ChecksumGate) byChecksum(ctx context.Context, owner, checksum string) (*Intent, error) {
	it, ok := g.store.ByChecksum(ctx, checksum)
	if !ok || it.Owner != owner {
		return nil, xerrors.New(xerrors.CodeNoPendingIntent, "校验和未对应任何待确认意图")
	}
	return it, nil
}

var _ Gate = (*ChecksumGate)(nil)
