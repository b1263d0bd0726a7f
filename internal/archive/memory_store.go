package archive

import (
	"context"
	"sync"
)

// MemoryStore 以内存方式保存转账留档，主要用于测试与单机部署。
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append 实现 Store 接口。
func (m *MemoryStore) Append(_ context.Context, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

// List 实现 Store 接口，按写入倒序返回。
func (m *MemoryStore) List(_ context.Context, owner string, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	results := make([]Record, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(results) < limit; i-- {
		if owner != "" && m.records[i].Owner != owner {
			continue
		}
		results = append(results, m.records[i])
	}
	return results, nil
}

// Close 对内存存储无需操作。
func (m *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
