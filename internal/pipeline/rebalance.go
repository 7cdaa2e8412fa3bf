package pipeline

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/submission"
	"github.com/solana-zh/lp-engine/internal/venue"
)

// RebalanceRequest is the atomic-rebalance intent (spec §4.5): close the
// old position and open a new one centered on the pool's current index,
// width preserved by default, in a single bundle.
type RebalanceRequest struct {
	Owner        solana.PublicKey
	OldPosition  venue.Position
	SlippageBps  int
	Urgency      venue.TipUrgency
	VanityPrefix string
}

type RebalanceResult struct {
	Outcome       submission.Outcome
	NewRange      venue.Range
	NewPositionID string
}

// Rebalance decreases+closes OldPosition and opens a fresh position at a
// range re-centered on the pool's current index, both in one bundle so the
// new range replaces the old one atomically under §4.6's bundle
// semantics. The new position account is a fresh keypair (vanity-ground if
// VanityPrefix is set); its secret material rides along as a co-signer
// through the submission driver, which hands it to the custody oracle.
func (c *Composer) Rebalance(ctx context.Context, req RebalanceRequest) (RebalanceResult, error) {
	release, err := c.locks.TryLock(req.Owner)
	if err != nil {
		return RebalanceResult{}, err
	}
	defer release()

	adapter, ok := c.registry.Get(req.OldPosition.Venue)
	if !ok {
		return RebalanceResult{}, errs.New(errs.UnsupportedPoolType, fmt.Sprintf("no adapter registered for venue %s", req.OldPosition.Venue))
	}

	pool, err := adapter.DescribePool(ctx, req.OldPosition.Pool)
	if err != nil {
		return RebalanceResult{}, err
	}

	if err := c.checkOracleReliable(ctx, pool); err != nil {
		return RebalanceResult{}, err
	}

	decreasePlan, err := adapter.BuildDecrease(ctx, &req.OldPosition, fullWithdrawBps, true)
	if err != nil {
		return RebalanceResult{}, err
	}

	width := req.OldPosition.Range.Upper - req.OldPosition.Range.Lower
	half := width / 2
	newRange := venue.Range{Lower: pool.ActiveIndex - half, Upper: pool.ActiveIndex - half + width}

	amounts := venue.Amounts{A: req.OldPosition.DepositedA, B: req.OldPosition.DepositedB}
	if _, err := adapter.QuoteLiquidity(ctx, pool, newRange, amounts, req.SlippageBps); err != nil {
		return RebalanceResult{}, err
	}

	openPlan, err := adapter.BuildOpen(ctx, pool, newRange, amounts, req.Owner, venue.Spot, req.VanityPrefix)
	if err != nil {
		return RebalanceResult{}, err
	}

	ixs := append(append([]solana.Instruction{}, decreasePlan.Instructions...), openPlan.Instructions...)
	signers := append(append([]solana.PrivateKey{}, decreasePlan.Signers...), openPlan.Signers...)

	tx, err := c.buildTransaction(ctx, req.Owner, ixs, req.Urgency)
	if err != nil {
		return RebalanceResult{}, err
	}

	outcome, err := c.driver.SubmitBundle(ctx, req.Owner, signers, tipAmountFor(req.Urgency), tx)
	if err != nil {
		return RebalanceResult{}, err
	}

	c.indexer.Invalidate(req.Owner)
	return RebalanceResult{
		Outcome:       outcome,
		NewRange:      newRange,
		NewPositionID: positionIDFromSigners(openPlan.Signers),
	}, nil
}
