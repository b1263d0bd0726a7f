package intent

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	xerrors "TokenPilot-Chain/internal/errors"
)

// DefaultCodeTTL 是短口令策略下意图的可确认窗口。
const DefaultCodeTTL = 5 * time.Minute

// DefaultCodeLength 是口令中 "#" 之后的字符数。
const DefaultCodeLength = 4

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// CodeGate 实现短口令确认策略：草拟时由进程级密钥和意图 id
// 确定性导出一个短口令，用户必须在后续消息中原样带回。
// 相比校验和回显，该策略能防御仅复读结构化数据的规划器。
type CodeGate struct {
	store      Store
	secret     []byte
	ttl        time.Duration
	codeLength int
	now        func() time.Time
}

// NewCodeGate 构造短口令闸门。secret 必须在启动时建立一次且此后不可变。
func NewCodeGate(store Store, secret []byte, ttl time.Duration, codeLength int) *CodeGate {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	if codeLength <= 0 {
		codeLength = DefaultCodeLength
	}
	return &CodeGate{store: store, secret: secret, ttl: ttl, codeLength: codeLength, now: time.Now}
}

// NewSecret 从不可预测的熵源派生进程级确认密钥。
func NewSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "派生确认密钥失败")
	}
	return secret, nil
}

// Code 由密钥与意图 id 确定性导出短口令，形如 "#A7QX"。
// 口令不落库：任何时刻都可以从密钥重算。
func (g *CodeGate) Code(intentID string) string {
	h := sha256.New()
	h.Write(g.secret)
	h.Write([]byte(intentID))
	encoded := codeEncoding.EncodeToString(h.Sum(nil))
	return "#" + encoded[:g.codeLength]
}

// Challenge 实现 Gate 接口。
func (g *CodeGate) Challenge(it *Intent) string {
	return fmt.Sprintf("Reply with %s within %d minutes to confirm.", g.Code(it.ID), int(g.ttl.Minutes()))
}

// ConfirmsRawText 实现 Gate 接口：口令策略直接匹配用户原文。
func (g *CodeGate) ConfirmsRawText() bool { return true }

// Match 实现 Gate 接口：候选是调用者最近一条未过期、未执行的
// Pending 意图，且消息文本必须包含其口令（大小写不敏感的子串匹配）。
// 过期的意图只被跳过，从不主动删除。
func (g *CodeGate) Match(ctx context.Context, owner string, conf Confirmation) (*Intent, error) {
	it, ok := g.store.LastByOwner(ctx, owner)
	if !ok {
		return nil, xerrors.New(xerrors.CodeNoPendingIntent, "当前没有待确认的意图")
	}
	if it.Status == StatusExecuted {
		// 对已执行意图重复回帖口令时明确拒绝，而不是转入草拟流程。
		if strings.Contains(strings.ToLower(conf.Text), strings.ToLower(g.Code(it.ID))) {
			return nil, xerrors.New(xerrors.CodeDuplicateExecution, "意图已执行，拒绝重复确认")
		}
		return nil, xerrors.New(xerrors.CodeNoPendingIntent, "当前没有待确认的意图")
	}
	if it.Status != StatusPending {
		return nil, xerrors.New(xerrors.CodeNoPendingIntent, "当前没有待确认的意图")
	}
	age := g.now().Sub(time.Unix(0, it.CreatedAt))
	if age > g.ttl {
		return nil, xerrors.New(xerrors.CodeNoPendingIntent, "待确认的意图已过期")
	}
	code := strings.ToLower(g.Code(it.ID))
	if !strings.Contains(strings.ToLower(conf.Text), code) {
		return nil, xerrors.New(xerrors.CodeNoMatchingCode, "消息中不含有效确认口令")
	}
	return it, nil
}

var _ Gate = (*CodeGate)(nil)
