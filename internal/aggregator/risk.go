package aggregator

import (
	cosmath "cosmossdk.io/math"

	"github.com/solana-zh/lp-engine/internal/venue"
)

const (
	tvlPenaltyLow    = 50_000.0
	tvlPenaltyMid    = 200_000.0
	tvlPenaltyHigh   = 1_000_000.0
	lowVolumeRatio   = 0.01
)

// RiskScore computes a pool's risk score without any external data: a base
// of 1, plus the more volatile token's volatility tier, plus a TVL penalty,
// plus 1 for thin trading relative to TVL, minus 1 per stable-side token,
// clamped to [1,10]. Two genuinely stable, well-traded, deep pools collapse
// to the floor of 1 via the clamp rather than a special case.
func RiskScore(p venue.Pool) int {
	score := 1 + int(volatilityTierOf(p.TokenA.Mint, p.TokenB.Mint))
	score += tvlPenalty(p.TVL)

	tvlFloat := p.TVL.MustFloat64()
	if tvlFloat > 0 {
		volFloat := p.Volume24h.MustFloat64()
		if volFloat/tvlFloat < lowVolumeRatio {
			score++
		}
	}

	score -= stableSideCount(p.TokenA.Mint, p.TokenB.Mint)

	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return score
}

func tvlPenalty(tvl cosmath.LegacyDec) int {
	v := tvl.MustFloat64()
	switch {
	case v < tvlPenaltyLow:
		return 3
	case v < tvlPenaltyMid:
		return 2
	case v < tvlPenaltyHigh:
		return 1
	default:
		return 0
	}
}
