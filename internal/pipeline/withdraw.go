package pipeline

import (
	"context"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/submission"
	"github.com/solana-zh/lp-engine/internal/venue"
)

// WithdrawRequest is the withdraw-and-convert intent (spec §4.5).
// ConvertTo nil means "leave the withdrawn pool tokens as-is" — no swap,
// no protocol fee.
type WithdrawRequest struct {
	Owner       solana.PublicKey
	Position    venue.Position
	ConvertTo   *solana.PublicKey
	SlippageBps int
	Urgency     venue.TipUrgency
}

// WithdrawResult reports whether the swap-back leg actually converted the
// withdrawn tokens, per spec §8 scenario 6's literal {converted, reason}
// response shape.
type WithdrawResult struct {
	Outcome   submission.Outcome
	Converted bool
	Reason    string
	FeeAmount cosmath.Int
}

// Withdraw decreases a position to zero and closes it, optionally
// converting the withdrawn tokens to a single mint and taking the
// protocol's fee on the converted amount. If the conversion swap fails,
// the pipeline falls back to returning the pool tokens to the owner with
// no fee rather than failing the whole withdrawal.
func (c *Composer) Withdraw(ctx context.Context, req WithdrawRequest) (WithdrawResult, error) {
	release, err := c.locks.TryLock(req.Owner)
	if err != nil {
		return WithdrawResult{}, err
	}
	defer release()

	adapter, ok := c.registry.Get(req.Position.Venue)
	if !ok {
		return WithdrawResult{}, errs.New(errs.UnsupportedPoolType, fmt.Sprintf("no adapter registered for venue %s", req.Position.Venue))
	}

	decreasePlan, err := adapter.BuildDecrease(ctx, &req.Position, fullWithdrawBps, true)
	if err != nil {
		return WithdrawResult{}, err
	}

	ixs := append([]solana.Instruction{}, decreasePlan.Instructions...)
	result := WithdrawResult{FeeAmount: cosmath.ZeroInt()}

	if req.ConvertTo != nil {
		pool, err := adapter.DescribePool(ctx, req.Position.Pool)
		if err != nil {
			return WithdrawResult{}, err
		}

		swapIxs, netOut, ok := c.trySwapBack(ctx, pool, req)
		if ok {
			feeAmount := netOut.Mul(cosmath.NewInt(int64(c.feeBps))).Quo(cosmath.NewInt(10_000))
			ixs = append(ixs, swapIxs...)
			if feeAmount.IsPositive() {
				ixs = append(ixs, system.NewTransferInstruction(feeAmount.Uint64(), req.Owner, c.treasury).Build())
			}
			result.Converted = true
			result.FeeAmount = feeAmount
		} else {
			result.Converted = false
			result.Reason = "swap_unavailable"
		}
	}

	tx, err := c.buildTransaction(ctx, req.Owner, ixs, req.Urgency)
	if err != nil {
		return WithdrawResult{}, err
	}

	outcome, err := c.driver.SubmitBundle(ctx, req.Owner, decreasePlan.Signers, tipAmountFor(req.Urgency), tx)
	if err != nil {
		return WithdrawResult{}, err
	}

	result.Outcome = outcome
	c.indexer.Invalidate(req.Owner)
	return result, nil
}

// trySwapBack converts every deposited leg not already in ConvertTo's mint
// into it, reporting ok=false the moment any leg's swap fails so the
// caller can fall back to the no-fee, no-conversion path rather than
// landing half a conversion.
func (c *Composer) trySwapBack(ctx context.Context, pool *venue.Pool, req WithdrawRequest) ([]solana.Instruction, cosmath.Int, bool) {
	convertTo := *req.ConvertTo

	legs := []struct {
		mint   solana.PublicKey
		amount cosmath.Int
	}{
		{pool.TokenA.Mint, req.Position.DepositedA},
		{pool.TokenB.Mint, req.Position.DepositedB},
	}

	var ixs []solana.Instruction
	netOut := cosmath.ZeroInt()

	for _, leg := range legs {
		if leg.amount.IsNil() || !leg.amount.IsPositive() {
			continue
		}
		if leg.mint.Equals(convertTo) {
			netOut = netOut.Add(leg.amount)
			continue
		}

		quote, err := c.router.Quote(ctx, leg.mint, convertTo, leg.amount, req.SlippageBps)
		if err != nil {
			return nil, cosmath.ZeroInt(), false
		}
		swapIxs, err := c.router.Swap(ctx, quote, req.Owner)
		if err != nil {
			return nil, cosmath.ZeroInt(), false
		}
		ixs = append(ixs, swapIxs...)
		netOut = netOut.Add(quote.WorstCaseOut)
	}

	return ixs, netOut, true
}
