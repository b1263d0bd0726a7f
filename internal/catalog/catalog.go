package catalog

import (
	"context"
	"sync"

	xerrors "TokenPilot-Chain/internal/errors"
)

// ActionSpec 描述目录中一个可调用动作的完整定义。
type ActionSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Endpoint    string `json:"endpoint,omitempty"`
	Method      string `json:"method,omitempty"`
	ArgsSchema  string `json:"args_schema,omitempty"`
	ReturnShape string `json:"return_shape,omitempty"`
}

// ManifestEntry 是向规划器公开的动作摘要，不含执行细节。
type ManifestEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ArgsSchema  string `json:"args_schema,omitempty"`
}

// Catalog 是引擎侧只读的动作目录接口。
type Catalog interface {
	// Manifest 返回全部动作的摘要列表。
	Manifest(ctx context.Context) ([]ManifestEntry, error)
	// Get 按名称返回动作定义，不存在时返回 CATALOG_FAILURE。
	Get(ctx context.Context, name string) (*ActionSpec, error)
}

// Registry 在内存中维护动作目录，重名注册后写覆盖先写。
type Registry struct {
	mu      sync.RWMutex
	actions map[string]ActionSpec
	order   []string
}

// NewRegistry 创建目录并注册给定动作。
func NewRegistry(actions ...ActionSpec) *Registry {
	r := &Registry{actions: make(map[string]ActionSpec)}
	for _, action := range actions {
		r.Register(action)
	}
	return r
}

// Register 注册或覆盖一个动作。
func (r *Registry) Register(action ActionSpec) {
	if action.Name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actions[action.Name]; !ok {
		r.order = append(r.order, action.Name)
	}
	r.actions[action.Name] = action
}

// Manifest 实现 Catalog 接口，按注册顺序返回。
func (r *Registry) Manifest(_ context.Context) ([]ManifestEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]ManifestEntry, 0, len(r.order))
	for _, name := range r.order {
		action := r.actions[name]
		entries = append(entries, ManifestEntry{
			Name:        action.Name,
			Description: action.Description,
			ArgsSchema:  action.ArgsSchema,
		})
	}
	return entries, nil
}

// Get 实现 Catalog 接口。
func (r *Registry) Get(_ context.Context, name string) (*ActionSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	action, ok := r.actions[name]
	if !ok {
		return nil, xerrors.New(xerrors.CodeCatalogFailure, "动作 '"+name+"' 未注册",
			xerrors.WithMetadata("field", "action"))
	}
	clone := action
	return &clone, nil
}

var _ Catalog = (*Registry)(nil)
