package identity

import (
	"context"
	"strings"
)

// ownerKey 是上下文中存储调用者身份的键类型。
type ownerKey struct{}

// WithOwner 将调用者身份存储到上下文中。
func WithOwner(ctx context.Context, owner string) context.Context {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return ctx
	}
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFromContext 从上下文中提取调用者身份，未设置时返回空串。
func OwnerFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if owner, ok := ctx.Value(ownerKey{}).(string); ok {
		return owner
	}
	return ""
}
