// Package budget implements the Budget Estimator (C4): simulate a
// transaction, size its compute-unit limit, and price its priority fee
// from recent network data — grounded on pkg/sol/rpc_wrapper.go's
// rate-limited RPC wrapper idiom.
package budget

import (
	"context"
	"math"
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/solana-zh/lp-engine/pkg/sol"
)

const (
	minComputeUnits     = 50_000
	maxComputeUnits     = 1_400_000
	defaultComputeUnits = 400_000
	computeUnitSlack    = 1.3

	minPriorityFeeMicroLamports = 1_000
)

// Urgency drives the priority-fee percentile (spec §4.4).
type Urgency string

const (
	Low      Urgency = "LOW"
	Medium   Urgency = "MEDIUM"
	High     Urgency = "HIGH"
	Critical Urgency = "CRITICAL"
)

func percentileFor(u Urgency) int {
	switch u {
	case Medium:
		return 50
	case High:
		return 75
	case Critical:
		return 90
	default:
		return 25
	}
}

// Estimate is the sized output handed back to the pipeline composer.
type Estimate struct {
	ComputeUnitLimit uint32
	PriorityFeeMicroLamports uint64
}

// Estimator wraps a *sol.Client to simulate and price transactions.
type Estimator struct {
	client *sol.Client
}

func New(client *sol.Client) *Estimator {
	return &Estimator{client: client}
}

// Estimate simulates tx (blockhash replaced, signatures unverified) and
// prices the priority fee against the transaction's writable accounts, per
// spec §4.4's exact clamp/floor/default rules.
func (e *Estimator) Estimate(ctx context.Context, tx *solana.Transaction, urgency Urgency) (Estimate, error) {
	consumed := uint64(0)
	sim, err := e.client.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		ReplaceRecentBlockhash: true,
		SigVerify:              false,
	})
	if err == nil && sim != nil && sim.Value != nil && sim.Value.UnitsConsumed != nil {
		consumed = *sim.Value.UnitsConsumed
	}

	var cuLimit uint32
	if consumed == 0 {
		cuLimit = defaultComputeUnits
	} else {
		scaled := uint64(math.Ceil(float64(consumed) * computeUnitSlack))
		if scaled < minComputeUnits {
			scaled = minComputeUnits
		}
		if scaled > maxComputeUnits {
			scaled = maxComputeUnits
		}
		cuLimit = uint32(scaled)
	}

	fee := e.priorityFee(ctx, writableAccounts(tx), urgency)

	return Estimate{ComputeUnitLimit: cuLimit, PriorityFeeMicroLamports: fee}, nil
}

func (e *Estimator) priorityFee(ctx context.Context, accounts []solana.PublicKey, urgency Urgency) uint64 {
	fees, err := e.client.GetRecentPrioritizationFees(ctx, accounts)
	if err != nil || len(fees) == 0 {
		return minPriorityFeeMicroLamports
	}

	values := make([]uint64, 0, len(fees))
	for _, f := range fees {
		values = append(values, f.PrioritizationFee)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	p := percentileFor(urgency)
	idx := (p * (len(values) - 1)) / 100
	fee := values[idx]
	if fee < minPriorityFeeMicroLamports {
		fee = minPriorityFeeMicroLamports
	}
	return fee
}

func writableAccounts(tx *solana.Transaction) []solana.PublicKey {
	var out []solana.PublicKey
	for i, acct := range tx.Message.AccountKeys {
		if tx.Message.IsWritable(uint16(i)) {
			out = append(out, acct)
		}
	}
	return out
}

// PrependComputeBudgetInstructions strips any existing compute-budget
// program instructions from ixs and prepends exactly two: SetComputeUnitLimit
// and SetComputeUnitPrice, satisfying the invariant in spec §8.4.
func PrependComputeBudgetInstructions(ixs []solana.Instruction, est Estimate) []solana.Instruction {
	filtered := make([]solana.Instruction, 0, len(ixs)+2)
	for _, ix := range ixs {
		if ix.ProgramID() == sol.ComputeBudgetProgramID {
			continue
		}
		filtered = append(filtered, ix)
	}

	limitIx := newSetComputeUnitLimit(est.ComputeUnitLimit)
	priceIx := newSetComputeUnitPrice(est.PriorityFeeMicroLamports)

	out := make([]solana.Instruction, 0, len(filtered)+2)
	out = append(out, limitIx, priceIx)
	out = append(out, filtered...)
	return out
}
