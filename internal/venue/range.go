package venue

import "github.com/solana-zh/lp-engine/internal/errs"

// SnapBinRange implements the DLMM range-snap algorithm from spec §4.1:
// lower = active - k*step, upper = active + k*step, clamped to [minBin,
// maxBin]. k is 5 for CONCENTRATED, 20 for WIDE.
func SnapBinRange(active int32, step int32, shape RangeShape, minBin, maxBin int32) Range {
	k := concentratedK
	if shape == Wide {
		k = wideK
	}
	lower := active - k*step
	upper := active + k*step
	if lower < minBin {
		lower = minBin
	}
	if upper > maxBin {
		upper = maxBin
	}
	return Range{Lower: lower, Upper: upper}
}

// SnapTickRange implements the tick-venue range-snap algorithm from spec
// §4.1: lower = ceil((current-k*spacing)/spacing)*spacing, upper =
// floor((current+k*spacing)/spacing)*spacing. Both bounds are truncated
// toward current (not rounded) so the range stays inside the intended
// width.
func SnapTickRange(current int32, spacing int32, shape RangeShape) Range {
	k := concentratedK
	if shape == Wide {
		k = wideK
	}
	lower := -floorDiv(k*spacing-current, spacing) * spacing
	upper := floorDiv(current+k*spacing, spacing) * spacing
	return Range{Lower: lower, Upper: upper}
}

const (
	concentratedK int32 = 5
	wideK         int32 = 20
)

func floorDiv(a, b int32) int32 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// ValidateCustomRange rejects crossing, zero-width, or grid-unaligned
// ranges per spec §4.1's CUSTOM-shape validation.
func ValidateCustomRange(r Range, granularity int32) error {
	if r.Lower >= r.Upper {
		return errs.New(errs.Validation, "range is zero-width or crossing")
	}
	if granularity <= 0 {
		return errs.New(errs.Validation, "invalid pool granularity")
	}
	if r.Lower%granularity != 0 || r.Upper%granularity != 0 {
		return errs.New(errs.Validation, "range is not aligned to pool granularity")
	}
	return nil
}
