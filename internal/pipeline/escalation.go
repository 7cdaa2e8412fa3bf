package pipeline

// escalationState is the closed set of states the slippage-escalation loop
// passes through (spec §4.5/§7). TRYING holds the bps tier currently in
// flight; ESCALATING is the transient state entered right after a
// SLIPPAGE_EXCEEDED failure and before the next TRYING attempt; EXHAUSTED
// and LANDED are terminal.
type escalationState string

const (
	stateTrying     escalationState = "TRYING"
	stateEscalating escalationState = "ESCALATING"
	stateExhausted  escalationState = "EXHAUSTED"
	stateLanded     escalationState = "LANDED"
)

// slippageSequence is the fixed escalation ladder spec §4.5 specifies.
// Exhausting after the fourth attempt surfaces SLIPPAGE_EXHAUSTED rather
// than retrying forever.
var slippageSequence = []int{300, 500, 750, 1000}

// slippageEscalator walks slippageSequence starting from whichever rung
// first meets the caller's requested floor, never retrying below it.
type slippageEscalator struct {
	idx   int
	state escalationState
}

func newSlippageEscalator(requestedBps int) *slippageEscalator {
	idx := len(slippageSequence) - 1
	for i, bps := range slippageSequence {
		if bps >= requestedBps {
			idx = i
			break
		}
	}
	return &slippageEscalator{idx: idx, state: stateTrying}
}

func (e *slippageEscalator) bps() int {
	return slippageSequence[e.idx]
}

// escalate advances to the next bps tier, returning false once the ladder
// is exhausted (the fourth attempt already failed).
func (e *slippageEscalator) escalate() bool {
	e.state = stateEscalating
	if e.idx >= len(slippageSequence)-1 {
		e.state = stateExhausted
		return false
	}
	e.idx++
	e.state = stateTrying
	return true
}

func (e *slippageEscalator) land() {
	e.state = stateLanded
}
