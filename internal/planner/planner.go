package planner

import (
	"context"
	"encoding/json"
)

// 消息角色，与 Chat Completions 协议保持一致。
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message 是会话上下文中的一条消息。
// 工具结果消息必须携带发起调用的 ToolCallID，供规划器关联同轮多个调用。
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall 是规划器发起的一次动作调用请求。
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Tool 描述一个可供规划器调用的动作。
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Completion 是规划器单轮推理的结构化输出。
// ToolCalls 为空时 Content 即最终回复。
type Completion struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Client 定义了调用外部规划器的统一接口。
type Client interface {
	Complete(ctx context.Context, messages []Message, tools []Tool) (*Completion, error)
}
