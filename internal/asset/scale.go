package asset

import (
	"fmt"
	"math/big"
	"strings"

	xerrors "TokenPilot-Chain/internal/errors"
)

// ScaleAmount 将十进制金额字符串换算为最小单位的整数。
// 金额来自用户输入，长度不受限制，因此必须使用大整数运算。
// 例如 "10.5" 在 8 位精度下得到 1050000000。
func ScaleAmount(amountDec string, decimals uint8) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(amountDec), "_", "")
	if trimmed == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "金额不能为空",
			xerrors.WithMetadata("field", "amount_dec"),
			xerrors.WithMetadata("example", ExampleForDecimals(decimals)))
	}

	intPart, fracPart, found := strings.Cut(trimmed, ".")
	if found && strings.Contains(fracPart, ".") {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "金额格式不合法",
			xerrors.WithMetadata("field", "amount_dec"),
			xerrors.WithMetadata("example", ExampleForDecimals(decimals)))
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > int(decimals) {
		return nil, xerrors.New(xerrors.CodeTooManyDecimals,
			fmt.Sprintf("最多允许 %d 位小数", decimals),
			xerrors.WithMetadata("field", "amount_dec"),
			xerrors.WithMetadata("example", ExampleForDecimals(decimals)))
	}

	scaled := intPart + fracPart + strings.Repeat("0", int(decimals)-len(fracPart))
	for _, r := range scaled {
		if r < '0' || r > '9' {
			return nil, xerrors.New(xerrors.CodeInvalidArgument, "金额格式不合法",
				xerrors.WithMetadata("field", "amount_dec"),
				xerrors.WithMetadata("example", ExampleForDecimals(decimals)))
		}
	}

	amount, ok := new(big.Int).SetString(scaled, 10)
	if !ok {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "金额格式不合法",
			xerrors.WithMetadata("field", "amount_dec"))
	}
	return amount, nil
}

// ExampleForDecimals 按精度给出示例金额，用于纠错提示。
func ExampleForDecimals(decimals uint8) string {
	if decimals == 0 {
		return "10"
	}
	return "0.5"
}
