package intent

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math/big"
)

// Status 表示意图的生命周期阶段。Executed 为终态。
type Status string

const (
	StatusPending  Status = "pending"
	StatusExecuted Status = "executed"
	StatusExpired  Status = "expired"
)

// Intent 是一条规范化、带校验和的待执行转账提案。
// 所有金额均已换算为最小单位，规划器的原始输出不会进入该结构。
type Intent struct {
	ID      string   `json:"id"`
	Owner   string   `json:"owner"`
	Action  string   `json:"action"`
	To      string   `json:"to"`
	ToSub   string   `json:"to_sub,omitempty"`
	Symbol  string   `json:"symbol"`
	Ledger  string   `json:"ledger"`
	Amount  *big.Int `json:"amount"`
	Display string   `json:"display_amount"`
	Memo    string   `json:"memo,omitempty"`

	// CreatedAt 为草拟时刻的 Unix 纳秒时间戳，参与校验和计算。
	CreatedAt int64 `json:"created_at"`

	Summary  string `json:"summary"`
	Checksum string `json:"checksum"`
	Status   Status `json:"status"`
	Result   string `json:"result,omitempty"`
}

// ComputeChecksum 对执行相关字段计算确定性摘要：
// SHA-256 截取前 8 字节的十六进制表示。id 与 summary 不参与计算，
// 因此内容相同的两条意图即使独立草拟也会得到相同的校验和。
func ComputeChecksum(owner, to, toSub string, amount *big.Int, symbol, ledger, memo string, createdAt int64) string {
	h := sha256.New()
	for _, field := range []string{owner, to, toSub, amount.String(), symbol, ledger, memo} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(createdAt))
	h.Write(ts[:])

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

// Recompute 基于当前字段重算校验和，用于校验外部回传的意图负载。
func (i *Intent) Recompute() string {
	return ComputeChecksum(i.Owner, i.To, i.ToSub, i.Amount, i.Symbol, i.Ledger, i.Memo, i.CreatedAt)
}
