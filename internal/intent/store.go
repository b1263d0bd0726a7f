package intent

import "context"

// Store 抽象待执行意图的进程级索引。
// 实现必须维护三重索引：按 id、按校验和、按所有者的最近一条。
// 三重索引使确认闸门可以用完整负载、裸校验和或空输入三种方式定位意图。
type Store interface {
	// Put 写入一条新草拟的意图并刷新三重索引。
	Put(ctx context.Context, it *Intent) error
	// ByID 按 id 查找。
	ByID(ctx context.Context, id string) (*Intent, bool)
	// ByChecksum 按校验和查找。
	ByChecksum(ctx context.Context, checksum string) (*Intent, bool)
	// LastByOwner 返回指定所有者最近草拟的一条意图。
	LastByOwner(ctx context.Context, owner string) (*Intent, bool)
	// MarkExecuted 将意图置为终态并记录结算凭证。
	MarkExecuted(ctx context.Context, id, result string) error
	// PendingCount 返回当前处于 Pending 状态的意图数量，仅用于观测。
	PendingCount(ctx context.Context) int
}
