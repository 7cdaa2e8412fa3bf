// Package tickmath implements the sqrt-price/tick conversion arithmetic
// shared by every tick-based concentrated-liquidity venue (base 1.0001,
// Q64.64 fixed point). Raydium CLMM keeps its own integer copy of this math
// for swap simulation (pkg/pool/raydium/clmm_tickerarray.go); this package is
// the one the venue adapters share. It computes in float64, so its results
// approximate the on-chain integer math rather than match it bit for bit.
package tickmath

import (
	"math"
	"math/big"

	cosmath "cosmossdk.io/math"
)

const (
	MinTick = -443_636
	MaxTick = 443_636

	q64 = 1 << 64
)

// SqrtPriceX64FromTick computes sqrt(1.0001^tick) * 2^64 as a Q64.64
// fixed-point cosmath.Int, the representation both CLMM and Whirlpool store
// on-chain.
func SqrtPriceX64FromTick(tick int32) cosmath.Int {
	price := math.Pow(1.0001, float64(tick))
	sqrtPrice := math.Sqrt(price)
	scaled := new(big.Float).Mul(big.NewFloat(sqrtPrice), new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 64)))
	i, _ := scaled.Int(nil)
	return cosmath.NewIntFromBigInt(i)
}

// TickFromSqrtPriceX64 is the inverse of SqrtPriceX64FromTick: given a
// Q64.64 sqrt-price, recover the tick index, rounded down (floor).
func TickFromSqrtPriceX64(sqrtPriceX64 cosmath.Int) int32 {
	f := new(big.Float).SetInt(sqrtPriceX64.BigInt())
	f.Quo(f, new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 64)))
	sqrtPrice, _ := f.Float64()
	price := sqrtPrice * sqrtPrice
	tick := math.Log(price) / math.Log(1.0001)
	return int32(math.Floor(tick))
}

// PriceFromSqrtPriceX64 converts a Q64.64 sqrt-price into a human-readable
// price ratio (token1 per token0 before decimal adjustment).
func PriceFromSqrtPriceX64(sqrtPriceX64 cosmath.Int) float64 {
	f := new(big.Float).SetInt(sqrtPriceX64.BigInt())
	f.Quo(f, new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 64)))
	sqrtPrice, _ := f.Float64()
	return sqrtPrice * sqrtPrice
}

// AmountsFromLiquidity computes the token0/token1 amounts backing a
// liquidity scalar L over [sqrtLower, sqrtUpper] given the pool's current
// sqrt-price, using the canonical concentrated-liquidity formulas:
//
//	if current <= lower:  amount0 = L*(1/sqrtLower - 1/sqrtUpper), amount1 = 0
//	if current >= upper:  amount0 = 0, amount1 = L*(sqrtUpper - sqrtLower)
//	else:                 amount0 = L*(1/current - 1/sqrtUpper), amount1 = L*(current - sqrtLower)
func AmountsFromLiquidity(liquidity cosmath.Int, sqrtCurrent, sqrtLower, sqrtUpper cosmath.Int) (amount0, amount1 cosmath.Int) {
	l := toFloat(liquidity)
	cur := toFloatQ64(sqrtCurrent)
	lo := toFloatQ64(sqrtLower)
	up := toFloatQ64(sqrtUpper)

	var a0, a1 float64
	switch {
	case cur <= lo:
		a0 = l * (1/lo - 1/up)
	case cur >= up:
		a1 = l * (up - lo)
	default:
		a0 = l * (1/cur - 1/up)
		a1 = l * (cur - lo)
	}
	return floatToInt(a0), floatToInt(a1)
}

// LiquidityFromAmounts is the inverse: given available token amounts and a
// price range, derive the liquidity scalar those amounts can back.
func LiquidityFromAmounts(amount0, amount1 cosmath.Int, sqrtCurrent, sqrtLower, sqrtUpper cosmath.Int) cosmath.Int {
	a0 := toFloat(amount0)
	a1 := toFloat(amount1)
	cur := toFloatQ64(sqrtCurrent)
	lo := toFloatQ64(sqrtLower)
	up := toFloatQ64(sqrtUpper)

	// Outside the range the bound nearest the price takes its place, matching
	// AmountsFromLiquidity's out-of-range formulas.
	c := math.Min(math.Max(cur, lo), up)
	var l0, l1 float64
	if up > c {
		l0 = a0 / (1/c - 1/up)
	}
	if c > lo {
		l1 = a1 / (c - lo)
	}

	switch {
	case cur <= lo:
		return floatToInt(l0)
	case cur >= up:
		return floatToInt(l1)
	default:
		if l0 < l1 || l1 == 0 {
			return floatToInt(l0)
		}
		return floatToInt(l1)
	}
}

func toFloat(i cosmath.Int) float64 {
	f, _ := new(big.Float).SetInt(i.BigInt()).Float64()
	return f
}

func toFloatQ64(i cosmath.Int) float64 {
	f := new(big.Float).SetInt(i.BigInt())
	f.Quo(f, new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 64)))
	v, _ := f.Float64()
	return v
}

func floatToInt(f float64) cosmath.Int {
	if f < 0 {
		f = 0
	}
	bi, _ := big.NewFloat(f).Int(nil)
	return cosmath.NewIntFromBigInt(bi)
}
