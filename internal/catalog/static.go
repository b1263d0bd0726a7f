package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadFile 从 JSON 文件加载动作目录。
// 文件是一个 ActionSpec 数组，顺序即清单顺序。
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取动作目录失败: %w", err)
	}
	var actions []ActionSpec
	if err := json.Unmarshal(raw, &actions); err != nil {
		return nil, fmt.Errorf("解析动作目录失败: %w", err)
	}
	return NewRegistry(actions...), nil
}
