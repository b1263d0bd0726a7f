package account

import (
	"context"
	"sort"
	"sync"

	xerrors "TokenPilot-Chain/internal/errors"
)

// MemoryStore 以内存方式保存别名，主要用于测试与单机部署。
type MemoryStore struct {
	mu      sync.RWMutex
	aliases map[string]SavedAlias
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{aliases: make(map[string]SavedAlias)}
}

// Save 实现 Store 接口，别名冲突时覆盖旧记录。
func (m *MemoryStore) Save(_ context.Context, alias SavedAlias) error {
	normalized, err := NormalizeAlias(alias)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aliases[normalized.Alias] = normalized
	return nil
}

// Get 返回指定别名。
func (m *MemoryStore) Get(_ context.Context, alias string) (*SavedAlias, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	saved, ok := m.aliases[alias]
	if !ok {
		return nil, xerrors.New(xerrors.CodeUnknownRecipient,
			"别名 '"+alias+"' 不存在",
			xerrors.WithMetadata("field", "to"))
	}
	clone := saved
	return &clone, nil
}

// List 返回全部别名，按别名排序。
func (m *MemoryStore) List(_ context.Context) ([]SavedAlias, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := make([]SavedAlias, 0, len(m.aliases))
	for _, alias := range m.aliases {
		results = append(results, alias)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Alias < results[j].Alias })
	return results, nil
}

// Close 对内存存储无需操作。
func (m *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
