package intent

import (
	"context"
	"encoding/json"
)

// Confirmation 描述一次候选的确认输入。
// 三个字段互斥递进：完整负载优先，其次裸校验和，最后原始文本。
type Confirmation struct {
	Payload  json.RawMessage
	Checksum string
	Text     string
}

// Gate 判定一次用户输入是否构成对某条待执行意图的有效确认。
// 两种策略可互换：校验和回显策略与短口令策略。
// 匹配永远限定 owner == caller，调用者不可能确认他人的意图。
type Gate interface {
	// Challenge 返回草拟后向用户展示的确认提示。
	Challenge(it *Intent) string
	// ConfirmsRawText 表示该策略是否直接对用户原文做匹配。
	// 为 true 时会话层在转发规划器之前先尝试确认。
	ConfirmsRawText() bool
	// Match 在指定所有者范围内定位被确认的意图。
	// 未命中返回 NO_PENDING_INTENT 或 NO_MATCHING_CODE，
	// 这是首次请求的正常结果，调用方据此转入草拟流程。
	Match(ctx context.Context, owner string, conf Confirmation) (*Intent, error)
}
