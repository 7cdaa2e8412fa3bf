package tickmath

import "testing"

func TestSqrtPriceTickRoundTrip(t *testing.T) {
	for _, tick := range []int32{0, 100, -100, 10_000, -10_000} {
		sqrtPrice := SqrtPriceX64FromTick(tick)
		gotTick := TickFromSqrtPriceX64(sqrtPrice)
		if diff := gotTick - tick; diff < -1 || diff > 1 {
			t.Errorf("tick %d round-tripped to %d, want within 1", tick, gotTick)
		}
	}
}

func TestPriceMonotonicWithTick(t *testing.T) {
	lo := PriceFromSqrtPriceX64(SqrtPriceX64FromTick(-1000))
	hi := PriceFromSqrtPriceX64(SqrtPriceX64FromTick(1000))
	if lo >= hi {
		t.Fatalf("expected price to increase with tick: lo=%f hi=%f", lo, hi)
	}
}
