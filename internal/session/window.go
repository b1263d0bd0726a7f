package session

import "TokenPilot-Chain/internal/planner"

// DefaultMaxMessages 是会话上下文保留的消息数上限。
const DefaultMaxMessages = 10

// TrimWindow 把消息裁剪到 max 条以内。
// 首条 system 指令永远保留，其余消息保留最新的部分。
func TrimWindow(messages []planner.Message, max int) []planner.Message {
	if max <= 0 {
		max = DefaultMaxMessages
	}
	if len(messages) <= max {
		return messages
	}
	if messages[0].Role == planner.RoleSystem {
		trimmed := make([]planner.Message, 0, max)
		trimmed = append(trimmed, messages[0])
		trimmed = append(trimmed, messages[len(messages)-(max-1):]...)
		return trimmed
	}
	return messages[len(messages)-max:]
}
