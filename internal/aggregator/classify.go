package aggregator

import "github.com/gagliardetto/solana-go"

// volatilityTier is the static classification feeding the risk score's
// volatility component. Stable is tier 0, so it adds nothing to the score;
// the risk formula additionally subtracts 1 per stable side. An
// unrecognized mint is not in the table at all and defaults to tierLong,
// the most conservative tier (see volatilityTierOf).
type volatilityTier int

const (
	tierStable volatilityTier = iota
	tierBlueChip
	tierMajor
	tierMid
	tierLong
)

var knownMints = map[string]volatilityTier{
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": tierStable, // USDC
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": tierStable, // USDT
	"So11111111111111111111111111111111111111112": tierBlueChip, // wSOL
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So":  tierBlueChip, // mSOL
	"7dHbWXmci3dT8UFYWYZweBLXgycu7Y3iL6trKn1Y7ARj": tierBlueChip, // stSOL
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": tierMajor, // BONK
	"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN":  tierMajor, // JUP
}

// volatilityTierOf returns the more volatile side's tier for a pair by
// looking up both mints and taking the higher (more volatile) value.
// Unrecognized mints are treated as tierLong, the most volatile bucket, so
// an unlisted or freshly-launched token never understates its risk.
func volatilityTierOf(a, b solana.PublicKey) volatilityTier {
	ta, ok := knownMints[a.String()]
	if !ok {
		ta = tierLong
	}
	tb, ok := knownMints[b.String()]
	if !ok {
		tb = tierLong
	}
	if ta > tb {
		return ta
	}
	return tb
}

func isStable(mint solana.PublicKey) bool {
	tier, ok := knownMints[mint.String()]
	return ok && tier == tierStable
}

func stableSideCount(a, b solana.PublicKey) int {
	count := 0
	if isStable(a) {
		count++
	}
	if isStable(b) {
		count++
	}
	return count
}
