package ledger

import (
	"context"
	"math/big"

	xerrors "TokenPilot-Chain/internal/errors"
)

// Kind 区分账本侧的失败类别，执行引擎原样保留并透传给用户。
type Kind string

const (
	KindInsufficientFunds      Kind = "insufficient_funds"
	KindDuplicateTransfer      Kind = "duplicate_transfer"
	KindTemporarilyUnavailable Kind = "temporarily_unavailable"
	KindBadRequest             Kind = "bad_request"
)

// TransferRequest 携带一次结算所需的全部规范化字段。
// 转出方取自意图记录的所有者，绝不从当前调用者重新推导。
type TransferRequest struct {
	Source      string
	SourceSub   string
	Destination string
	DestSub     string
	Ledger      string
	Amount      *big.Int
	Memo        string
	CreatedAt   int64
}

// Client 是外部账本服务的最小接口。
// Transfer 成功返回不透明的结算凭证，失败返回带 Kind 的结构化错误。
type Client interface {
	Transfer(ctx context.Context, req TransferRequest) (string, error)
	Close() error
}

// Failure 把账本侧的失败类别映射为统一错误，类别写入 metadata 以便展示。
func Failure(kind Kind, cause error, message string) error {
	return xerrors.Wrap(xerrors.CodeExecutionFailure, cause, message,
		xerrors.WithMetadata("kind", string(kind)))
}

// KindOf 提取错误中的失败类别，非账本错误返回空。
func KindOf(err error) Kind {
	if e, ok := xerrors.From(err); ok {
		return Kind(e.Metadata()["kind"])
	}
	return ""
}
