package asset

import (
	"errors"
	"testing"

	xerrors "TokenPilot-Chain/internal/errors"
)

func testAllowlist(t *testing.T) *Allowlist {
	t.Helper()
	list, err := NewAllowlist([]Token{
		{Symbol: "ICP", Ledger: "ledger-icp", Decimals: 8},
		{Symbol: "CFXN", Ledger: "ledger-cfxn", Decimals: 0},
	}, "CFXN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return list
}

func TestResolvePrecedence(t *testing.T) {
	list := testAllowlist(t)

	token, err := list.Resolve("CFXN", "ledger-icp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.Symbol != "ICP" {
		t.Fatalf("explicit ledger should win, got %s", token.Symbol)
	}

	token, err = list.Resolve("icp", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.Symbol != "ICP" {
		t.Fatalf("symbol match should be case-insensitive, got %s", token.Symbol)
	}

	token, err = list.Resolve("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.Symbol != "CFXN" {
		t.Fatalf("expected default entry, got %s", token.Symbol)
	}
}

func TestResolveUnknownAsset(t *testing.T) {
	list := testAllowlist(t)

	_, err := list.Resolve("DOGE", "")
	if xerrors.CodeOf(err) != xerrors.CodeUnknownAsset {
		t.Fatalf("expected UNKNOWN_ASSET, got %v", err)
	}
	if meta := mustMetadata(t, err); meta["options"] == "" {
		t.Fatalf("expected allowed symbols in metadata, got %v", meta)
	}

	_, err = list.Resolve("", "ledger-doge")
	if xerrors.CodeOf(err) != xerrors.CodeUnknownAsset {
		t.Fatalf("expected UNKNOWN_ASSET for unknown ledger, got %v", err)
	}
}

func TestScaleAmount(t *testing.T) {
	cases := []struct {
		amount   string
		decimals uint8
		want     string
	}{
		{"10.5", 8, "1050000000"},
		{"1.5", 1, "15"},
		{"10", 0, "10"},
		{"0.00000001", 8, "1"},
		{".5", 1, "5"},
		{"1_000", 0, "1000"},
		{"123456789012345678901234567890.1", 1, "1234567890123456789012345678901"},
	}
	for _, tc := range cases {
		got, err := ScaleAmount(tc.amount, tc.decimals)
		if err != nil {
			t.Fatalf("scale(%q, %d): unexpected error %v", tc.amount, tc.decimals, err)
		}
		if got.String() != tc.want {
			t.Fatalf("scale(%q, %d) = %s, want %s", tc.amount, tc.decimals, got, tc.want)
		}
	}
}

func TestScaleAmountRejectsBadInput(t *testing.T) {
	cases := []struct {
		amount   string
		decimals uint8
		code     xerrors.Code
	}{
		{"1.23", 1, xerrors.CodeTooManyDecimals},
		{"1.2.3", 1, xerrors.CodeInvalidArgument},
		{"abc", 8, xerrors.CodeInvalidArgument},
		{"-5", 0, xerrors.CodeInvalidArgument},
		{"", 8, xerrors.CodeInvalidArgument},
	}
	for _, tc := range cases {
		_, err := ScaleAmount(tc.amount, tc.decimals)
		if xerrors.CodeOf(err) != tc.code {
			t.Fatalf("scale(%q, %d): expected %s, got %v", tc.amount, tc.decimals, tc.code, err)
		}
	}
}

func mustMetadata(t *testing.T, err error) map[string]string {
	t.Helper()
	var xe *xerrors.Error
	if !errors.As(err, &xe) {
		t.Fatalf("expected *xerrors.Error, got %T", err)
	}
	return xe.Metadata()
}
