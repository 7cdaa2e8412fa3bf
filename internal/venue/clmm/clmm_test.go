package clmm

import (
	"testing"

	cosmath "cosmossdk.io/math"
)

func TestApplySlippageReducesAmount(t *testing.T) {
	amount := applySlippage(cosmath.NewInt(1_000_000), 50) // 0.5%
	if amount.Int64() != 995_000 {
		t.Fatalf("applySlippage(1000000, 50bps) = %s, want 995000", amount)
	}
}

func TestPow10(t *testing.T) {
	if pow10(0) != 1 {
		t.Fatalf("pow10(0) = %v, want 1", pow10(0))
	}
	if pow10(6) != 1_000_000 {
		t.Fatalf("pow10(6) = %v, want 1000000", pow10(6))
	}
}
