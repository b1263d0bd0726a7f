package asset

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	xerrors "TokenPilot-Chain/internal/errors"
)

// Token 描述允许转账的一种资产。
type Token struct {
	Symbol   string `yaml:"symbol"`
	Ledger   string `yaml:"ledger"`
	Decimals uint8  `yaml:"decimals"`
}

// Allowlist 是进程生命周期内不可变的资产白名单。
// 所有转账只能针对白名单内的资产发起。
type Allowlist struct {
	tokens        []Token
	defaultSymbol string
}

// allowlistFile 对应 configs/tokens.yaml 的文件结构。
type allowlistFile struct {
	Tokens        []Token `yaml:"tokens"`
	DefaultSymbol string  `yaml:"default_symbol"`
}

// NewAllowlist 基于给定条目构建白名单。
func NewAllowlist(tokens []Token, defaultSymbol string) (*Allowlist, error) {
	if len(tokens) == 0 {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "资产白名单不能为空")
	}
	for _, t := range tokens {
		if strings.TrimSpace(t.Symbol) == "" || strings.TrimSpace(t.Ledger) == "" {
			return nil, xerrors.New(xerrors.CodeInitializationFailure,
				fmt.Sprintf("白名单条目不完整: symbol=%q ledger=%q", t.Symbol, t.Ledger))
		}
	}
	return &Allowlist{tokens: tokens, defaultSymbol: strings.TrimSpace(defaultSymbol)}, nil
}

// LoadAllowlist 解析 YAML 白名单文件。
func LoadAllowlist(path string) (*Allowlist, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取资产白名单失败: %w", err)
	}
	var file allowlistFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("解析资产白名单失败: %w", err)
	}
	return NewAllowlist(file.Tokens, file.DefaultSymbol)
}

// Symbols 返回白名单内全部资产符号，用于错误提示。
func (a *Allowlist) Symbols() []string {
	symbols := make([]string, 0, len(a.tokens))
	for _, t := range a.tokens {
		symbols = append(symbols, t.Symbol)
	}
	return symbols
}

// Resolve 按优先级解析资产：显式 ledger 标识 > 符号 > 默认条目。
// 显式给出却未命中白名单时返回 UNKNOWN_ASSET，调用方不能指定任意资产。
func (a *Allowlist) Resolve(symbol, ledger string) (Token, error) {
	if l := strings.TrimSpace(ledger); l != "" {
		for _, t := range a.tokens {
			if t.Ledger == l {
				return t, nil
			}
		}
		return Token{}, xerrors.New(xerrors.CodeUnknownAsset,
			fmt.Sprintf("ledger %q 不在白名单内", l),
			xerrors.WithMetadata("field", "ledger"))
	}

	if s := strings.TrimSpace(symbol); s != "" {
		for _, t := range a.tokens {
			if strings.EqualFold(t.Symbol, s) {
				return t, nil
			}
		}
		return Token{}, xerrors.New(xerrors.CodeUnknownAsset,
			fmt.Sprintf("资产 %q 不在白名单内", s),
			xerrors.WithMetadata("field", "symbol"),
			xerrors.WithMetadata("options", strings.Join(a.Symbols(), ",")))
	}

	return a.defaultToken(), nil
}

func (a *Allowlist) defaultToken() Token {
	if a.defaultSymbol != "" {
		for _, t := range a.tokens {
			if strings.EqualFold(t.Symbol, a.defaultSymbol) {
				return t
			}
		}
	}
	return a.tokens[0]
}
