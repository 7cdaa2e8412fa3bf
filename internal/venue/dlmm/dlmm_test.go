package dlmm

import (
	"testing"

	cosmath "cosmossdk.io/math"
)

func TestSqrtPriceX64FromBinIDMonotonic(t *testing.T) {
	low := sqrtPriceX64FromBinID(-10, 25)
	mid := sqrtPriceX64FromBinID(0, 25)
	high := sqrtPriceX64FromBinID(10, 25)

	if !low.LT(mid) {
		t.Fatalf("expected sqrt price at bin -10 to be below bin 0")
	}
	if !mid.LT(high) {
		t.Fatalf("expected sqrt price at bin 0 to be below bin 10")
	}
}

func TestApplySlippageReducesAmount(t *testing.T) {
	amount := applySlippage(cosmath.NewInt(1_000_000), 100) // 1%
	if amount.Int64() != 990_000 {
		t.Fatalf("applySlippage(1000000, 100bps) = %s, want 990000", amount)
	}
}
