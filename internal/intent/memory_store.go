package intent

import (
	"context"
	"sync"

	xerrors "TokenPilot-Chain/internal/errors"
)

// MemoryStore 在内存中维护意图的三重索引，所有方法并发安全。
// 读方法返回快照而不是库内实例：库内实例只在 MarkExecuted 中变更，
// 读写都在锁内完成，调用方拿到的副本随意使用也不会引入数据竞争。
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*Intent
	byChecksum map[string]*Intent
	lastOwner  map[string]*Intent
}

// snapshot 复制一份意图。Amount 等指针字段创建后只读，共享即可。
func snapshot(it *Intent) *Intent {
	copied := *it
	return &copied
}

// NewMemoryStore 创建空的意图存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*Intent),
		byChecksum: make(map[string]*Intent),
		lastOwner:  make(map[string]*Intent),
	}
}

// Put 实现 Store 接口。入库时复制一份，三个索引指向同一份库内数据，
// 调用方保留的指针与库内状态此后互不影响。
func (m *MemoryStore) Put(_ context.Context, it *Intent) error {
	if it == nil || it.ID == "" || it.Checksum == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "意图缺少 id 或校验和")
	}
	stored := snapshot(it)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[stored.ID] = stored
	m.byChecksum[stored.Checksum] = stored
	m.lastOwner[stored.Owner] = stored
	return nil
}

// ByID 实现 Store 接口。
func (m *MemoryStore) ByID(_ context.Context, id string) (*Intent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return snapshot(it), true
}

// ByChecksum 实现 Store 接口。
func (m *MemoryStore) ByChecksum(_ context.Context, checksum string) (*Intent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.byChecksum[checksum]
	if !ok {
		return nil, false
	}
	return snapshot(it), true
}

// LastByOwner 实现 Store 接口。
func (m *MemoryStore) LastByOwner(_ context.Context, owner string) (*Intent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.lastOwner[owner]
	if !ok {
		return nil, false
	}
	return snapshot(it), true
}

// MarkExecuted 实现 Store 接口。Executed 为终态，不可重复标记。
func (m *MemoryStore) MarkExecuted(_ context.Context, id, result string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.byID[id]
	if !ok {
		return xerrors.New(xerrors.CodeNoPendingIntent, "意图 '"+id+"' 不存在")
	}
	if it.Status == StatusExecuted {
		return xerrors.New(xerrors.CodeDuplicateExecution, "意图 '"+id+"' 已执行")
	}
	it.Status = StatusExecuted
	it.Result = result
	return nil
}

// PendingCount 实现 Store 接口。
func (m *MemoryStore) PendingCount(_ context.Context) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, it := range m.byID {
		if it.Status == StatusPending {
			count++
		}
	}
	return count
}

var _ Store = (*MemoryStore)(nil)
