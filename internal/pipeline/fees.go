package pipeline

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/submission"
	"github.com/solana-zh/lp-engine/internal/venue"
)

// CollectFeesRequest is the standalone fee-collection intent: claim a
// position's accrued fees without touching its liquidity or range.
type CollectFeesRequest struct {
	Owner    solana.PublicKey
	Position venue.Position
	Urgency  venue.TipUrgency
}

// CollectFees builds and submits a single collect-fees instruction plan,
// the same single-step shape as Rebalance/Withdraw minus the range math:
// one adapter call, one transaction, one bundle submission.
func (c *Composer) CollectFees(ctx context.Context, req CollectFeesRequest) (submission.Outcome, error) {
	release, err := c.locks.TryLock(req.Owner)
	if err != nil {
		return submission.Outcome{}, err
	}
	defer release()

	adapter, ok := c.registry.Get(req.Position.Venue)
	if !ok {
		return submission.Outcome{}, errs.New(errs.UnsupportedPoolType, fmt.Sprintf("no adapter registered for venue %s", req.Position.Venue))
	}

	plan, err := adapter.BuildCollectFees(ctx, &req.Position)
	if err != nil {
		return submission.Outcome{}, err
	}

	tx, err := c.buildTransaction(ctx, req.Owner, plan.Instructions, req.Urgency)
	if err != nil {
		return submission.Outcome{}, err
	}

	outcome, err := c.driver.SubmitBundle(ctx, req.Owner, plan.Signers, tipAmountFor(req.Urgency), tx)
	if err != nil {
		return submission.Outcome{}, err
	}

	c.indexer.Invalidate(req.Owner)
	return outcome, nil
}
