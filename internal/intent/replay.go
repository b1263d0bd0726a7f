package intent

import (
	"context"
	"sync"
)

// ReplayGuard 记录已完成执行的意图校验和，进程生命周期内只增不删。
// 执行引擎在每次调用账本前必须先查询该集合。
type ReplayGuard interface {
	// Contains 判断校验和是否已执行过。
	Contains(ctx context.Context, checksum string) (bool, error)
	// Add 在账本调用成功后登记校验和。
	Add(ctx context.Context, checksum string) error
}

// MemoryReplayGuard 以内存集合实现重放防护，适合单实例部署。
type MemoryReplayGuard struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewMemoryReplayGuard 创建空的重放防护集合。
func NewMemoryReplayGuard() *MemoryReplayGuard {
	return &MemoryReplayGuard{seen: make(map[string]struct{})}
}

// Contains 实现 ReplayGuard 接口。
func (g *MemoryReplayGuard) Contains(_ context.Context, checksum string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.seen[checksum]
	return ok, nil
}

// Add 实现 ReplayGuard 接口。
func (g *MemoryReplayGuard) Add(_ context.Context, checksum string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen[checksum] = struct{}{}
	return nil
}

var _ ReplayGuard = (*MemoryReplayGuard)(nil)
