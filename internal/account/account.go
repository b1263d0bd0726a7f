package account

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	xerrors "TokenPilot-Chain/internal/errors"
)

// SavedAlias 是用户显式保存的收款人书签。
// 别名作为唯一键，重复保存时后写覆盖先写。
type SavedAlias struct {
	Alias      string `json:"alias"`
	Owner      string `json:"owner"`
	SubAccount string `json:"sub_account,omitempty"`
}

// Store 抽象别名的持久化接口。实现必须支持并发访问。
type Store interface {
	Save(ctx context.Context, alias SavedAlias) error
	Get(ctx context.Context, alias string) (*SavedAlias, error)
	List(ctx context.Context) ([]SavedAlias, error)
	Close() error
}

// Resolver 将目标引用解析为具体的收款地址。
type Resolver struct {
	store Store
}

// NewResolver 构造收款人解析器。
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve 解析目标引用：合法地址直接返回，否则按保存的别名查找。
// 解析是纯查询，不修改任何状态。
func (r *Resolver) Resolve(ctx context.Context, to string) (string, string, error) {
	to = strings.TrimSpace(to)
	if common.IsHexAddress(to) {
		return common.HexToAddress(to).Hex(), "", nil
	}
	if r.store == nil {
		return "", "", xerrors.New(xerrors.CodeInitializationFailure, "别名存储未初始化")
	}
	saved, err := r.store.Get(ctx, to)
	if err != nil {
		return "", "", err
	}
	return saved.Owner, saved.SubAccount, nil
}

// NormalizeAlias 校验并规范化一条待保存的别名记录。
func NormalizeAlias(alias SavedAlias) (SavedAlias, error) {
	alias.Alias = strings.TrimSpace(alias.Alias)
	alias.Owner = strings.TrimSpace(alias.Owner)
	alias.SubAccount = strings.TrimSpace(alias.SubAccount)

	if alias.Alias == "" {
		return SavedAlias{}, xerrors.New(xerrors.CodeInvalidArgument, "别名不能为空",
			xerrors.WithMetadata("field", "alias"))
	}
	if !common.IsHexAddress(alias.Owner) {
		return SavedAlias{}, xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("地址 %q 不合法", alias.Owner),
			xerrors.WithMetadata("field", "owner"))
	}
	alias.Owner = common.HexToAddress(alias.Owner).Hex()

	if alias.SubAccount != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(alias.SubAccount, "0x"))
		if err != nil || len(raw) != 32 {
			return SavedAlias{}, xerrors.New(xerrors.CodeInvalidArgument, "子账户必须是 32 字节十六进制",
				xerrors.WithMetadata("field", "sub"))
		}
	}
	return alias, nil
}
