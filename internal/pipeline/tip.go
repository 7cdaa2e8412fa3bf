package pipeline

import "github.com/solana-zh/lp-engine/internal/venue"

// tipSchedule is the fixed lamport tip a bundle-mode submission pays the
// relay, keyed by venue.TipUrgency (spec §4.5 step 6). SKIP omits the tip
// entirely by mapping to zero.
var tipSchedule = map[venue.TipUrgency]uint64{
	venue.Fast:  10_000,
	venue.Turbo: 100_000,
	venue.Skip:  0,
}

func tipAmountFor(urgency venue.TipUrgency) uint64 {
	return tipSchedule[urgency]
}
