package mock

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"TokenPilot-Chain/internal/ledger"
)

// Ledger 是账本服务的内存替身，用于测试与本地演示。
// 账户余额按 (ledger, owner) 记账，结算凭证为自增的区块序号。
type Ledger struct {
	mu       sync.Mutex
	balances map[string]*big.Int
	seen     map[string]struct{}
	height   uint64
}

// NewLedger 创建空账本。
func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[string]*big.Int),
		seen:     make(map[string]struct{}),
	}
}

func accountKey(ledgerID, owner string) string {
	return ledgerID + "/" + owner
}

// Mint 给账户铸造余额，仅用于测试初始化。
func (l *Ledger) Mint(ledgerID, owner string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := accountKey(ledgerID, owner)
	if l.balances[key] == nil {
		l.balances[key] = new(big.Int)
	}
	l.balances[key].Add(l.balances[key], amount)
}

// BalanceOf 返回账户当前余额。
func (l *Ledger) BalanceOf(ledgerID, owner string) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if balance := l.balances[accountKey(ledgerID, owner)]; balance != nil {
		return new(big.Int).Set(balance)
	}
	return new(big.Int)
}

// Transfer 实现 ledger.Client 接口。
// 同一 (源, 创建时间戳) 组合只接受一次，模拟真实账本的时间戳去重。
func (l *Ledger) Transfer(_ context.Context, req ledger.TransferRequest) (string, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return "", ledger.Failure(ledger.KindBadRequest, nil, "转账金额必须为正数")
	}
	if req.Source == "" || req.Destination == "" {
		return "", ledger.Failure(ledger.KindBadRequest, nil, "转账缺少源或目标账户")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	dedupe := fmt.Sprintf("%s@%d", req.Source, req.CreatedAt)
	if _, ok := l.seen[dedupe]; ok {
		return "", ledger.Failure(ledger.KindDuplicateTransfer, nil, "重复的转账时间戳")
	}

	srcKey := accountKey(req.Ledger, req.Source)
	balance := l.balances[srcKey]
	if balance == nil || balance.Cmp(req.Amount) < 0 {
		return "", ledger.Failure(ledger.KindInsufficientFunds, nil, "余额不足")
	}

	dstKey := accountKey(req.Ledger, req.Destination)
	if l.balances[dstKey] == nil {
		l.balances[dstKey] = new(big.Int)
	}
	balance.Sub(balance, req.Amount)
	l.balances[dstKey].Add(l.balances[dstKey], req.Amount)

	l.seen[dedupe] = struct{}{}
	l.height++
	return fmt.Sprintf("block %d", l.height), nil
}

// Close 实现 ledger.Client 接口。
func (l *Ledger) Close() error {
	return nil
}

var _ ledger.Client = (*Ledger)(nil)
