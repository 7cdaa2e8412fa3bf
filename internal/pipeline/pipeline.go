// Package pipeline implements the pipeline composer (C5): the orchestration
// spine that turns a high-level intent (atomic LP, withdraw, rebalance)
// into an ordered, budgeted, signed transaction and drives it through
// C6. The teacher's own main.go only ever composed a single hardcoded
// swap; this package generalizes that single-shot composition into the
// multi-step, multi-venue sequence spec §4.5 describes, reusing every
// collaborator package (C1 venue adapters, C3 oracle, C4 budget, C6
// submission, C7 position cache, C10 seal) exactly as they're grounded in
// their own packages.
package pipeline

import (
	"context"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/solana-zh/lp-engine/internal/budget"
	"github.com/solana-zh/lp-engine/internal/custody"
	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/oracle"
	"github.com/solana-zh/lp-engine/internal/position"
	"github.com/solana-zh/lp-engine/internal/seal"
	"github.com/solana-zh/lp-engine/internal/submission"
	"github.com/solana-zh/lp-engine/internal/swaprouter"
	"github.com/solana-zh/lp-engine/internal/venue"
	"github.com/solana-zh/lp-engine/pkg/sol"
)

// fullWithdrawBps is "close the whole position" expressed in the same bps
// unit BuildDecrease takes for partial withdrawals.
const fullWithdrawBps = 10_000

// priceOracle is the subset of *oracle.Aggregator the composer needs,
// narrowed to an interface so tests can fake reconciled/unreliable prices
// without standing up two live sources.
type priceOracle interface {
	GetPrice(ctx context.Context, mint solana.PublicKey) (oracle.Result, error)
}

// estimator is the subset of *budget.Estimator the composer needs.
type estimator interface {
	Estimate(ctx context.Context, tx *solana.Transaction, urgency budget.Urgency) (budget.Estimate, error)
}

// bundleDriver is the subset of *submission.Driver the composer needs.
type bundleDriver interface {
	SubmitBundle(ctx context.Context, wallet solana.PublicKey, signers []solana.PrivateKey, tipAmount uint64, tx *solana.Transaction) (submission.Outcome, error)
}

// strategySealer is the subset of *seal.Sealer the composer needs.
type strategySealer interface {
	Seal(v any) (seal.Envelope, error)
}

// positionCache is the subset of *position.Indexer the composer needs: it
// only ever invalidates, never lists.
type positionCache interface {
	Invalidate(wallet solana.PublicKey)
}

// blockhashSource is the thin RPC boundary the composer needs beyond what
// C4/C6 already wrap, kept as an interface so tests can fake a
// deterministic blockhash instead of requiring a live RPC node.
type blockhashSource interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

// Composer is the C5 orchestrator. Every dependency is accepted as the
// narrowest interface it needs, so *sol.Client, *oracle.Aggregator,
// *budget.Estimator, *submission.Driver, *seal.Sealer and
// *position.Indexer all satisfy their respective fields without adapters.
type Composer struct {
	registry  venue.Registry
	oracle    priceOracle
	estimator estimator
	router    swaprouter.Router
	driver    bundleDriver
	signer    custody.Oracle
	sealer    strategySealer
	indexer   positionCache
	blockhash blockhashSource
	locks     *WalletLocks

	treasury   solana.PublicKey
	tipAccount solana.PublicKey
	feeBps     int
}

// New builds a Composer from the concrete collaborator types
// cmd/lpengine/main.go constructs at startup.
func New(
	registry venue.Registry,
	oracleAgg *oracle.Aggregator,
	est *budget.Estimator,
	router swaprouter.Router,
	driver *submission.Driver,
	signer custody.Oracle,
	sealer *seal.Sealer,
	indexer *position.Indexer,
	client *sol.Client,
	treasury solana.PublicKey,
	tipAccount solana.PublicKey,
	feeBps int,
) *Composer {
	return &Composer{
		registry:   registry,
		oracle:     oracleAgg,
		estimator:  est,
		router:     router,
		driver:     driver,
		signer:     signer,
		sealer:     sealer,
		indexer:    indexer,
		blockhash:  client,
		locks:      NewWalletLocks(),
		treasury:   treasury,
		tipAccount: tipAccount,
		feeBps:     feeBps,
	}
}

// OpenRequest is the atomic-LP intent (spec §3's Strategy, plus the owner
// wallet BuildOpen needs but Strategy itself does not carry).
type OpenRequest struct {
	Owner    solana.PublicKey
	Strategy venue.Strategy
}

// OpenResult is the receipt handed back once a bundle lands. An exhausted
// escalation loop returns a zero OpenResult with a SLIPPAGE_EXHAUSTED error.
type OpenResult struct {
	Outcome        submission.Outcome
	SlippageUsed   int
	SealedStrategy seal.Envelope
	PositionID     string
}

// OpenAtomic executes spec §4.5's seven-step atomic-LP sequence, wrapped in
// the slippage-escalation state machine: on SLIPPAGE_EXCEEDED the whole
// attempt (oracle check, swap legs, liquidity quote, build, budget, fresh
// blockhash) is rebuilt at the next ladder rung, never just the submit
// call.
func (c *Composer) OpenAtomic(ctx context.Context, req OpenRequest) (OpenResult, error) {
	release, err := c.locks.TryLock(req.Owner)
	if err != nil {
		return OpenResult{}, err
	}
	defer release()

	sealedEnv, err := c.sealer.Seal(req.Strategy)
	if err != nil {
		return OpenResult{}, err
	}

	escalator := newSlippageEscalator(req.Strategy.SlippageBps)
	for {
		outcome, positionID, err := c.attemptOpen(ctx, req, escalator.bps())
		if err == nil {
			escalator.land()
			c.indexer.Invalidate(req.Owner)
			return OpenResult{
				Outcome:        outcome,
				SlippageUsed:   escalator.bps(),
				SealedStrategy: sealedEnv,
				PositionID:     positionID,
			}, nil
		}

		if errs.KindOf(err) != errs.SlippageExceeded {
			return OpenResult{}, err
		}
		if !escalator.escalate() {
			return OpenResult{}, errs.New(errs.SlippageExhausted, "slippage escalation exhausted at 1000bps").WithHint(escalator.bps())
		}
	}
}

// attemptOpen runs exactly one pass of spec §4.5 steps 2-7 at the given
// slippage tier.
func (c *Composer) attemptOpen(ctx context.Context, req OpenRequest, slippageBps int) (submission.Outcome, string, error) {
	adapter, ok := c.registry.Get(req.Strategy.Venue)
	if !ok {
		return submission.Outcome{}, "", errs.New(errs.UnsupportedPoolType, fmt.Sprintf("no adapter registered for venue %s", req.Strategy.Venue))
	}

	pool, err := adapter.DescribePool(ctx, req.Strategy.Pool)
	if err != nil {
		return submission.Outcome{}, "", err
	}

	if err := c.checkOracleReliable(ctx, pool); err != nil {
		return submission.Outcome{}, "", err
	}

	rng, err := adapter.ComputeRange(ctx, pool, req.Strategy.RangeShape, req.Strategy.CustomRange)
	if err != nil {
		return submission.Outcome{}, "", err
	}

	swapIxs, amounts, err := c.synthesizeSwapLegs(ctx, req.Owner, pool, req.Strategy.CollateralMint, req.Strategy.CollateralAmount, slippageBps)
	if err != nil {
		return submission.Outcome{}, "", err
	}

	if _, err := adapter.QuoteLiquidity(ctx, pool, rng, amounts, slippageBps); err != nil {
		return submission.Outcome{}, "", err
	}

	plan, err := adapter.BuildOpen(ctx, pool, rng, amounts, req.Owner, req.Strategy.Distribution, req.Strategy.VanityPrefix)
	if err != nil {
		return submission.Outcome{}, "", err
	}

	ixs := append(append([]solana.Instruction{}, swapIxs...), plan.Instructions...)

	tx, err := c.buildTransaction(ctx, req.Owner, ixs, req.Strategy.Urgency)
	if err != nil {
		return submission.Outcome{}, "", err
	}

	outcome, err := c.driver.SubmitBundle(ctx, req.Owner, plan.Signers, tipAmountFor(req.Strategy.Urgency), tx)
	return outcome, positionIDFromSigners(plan.Signers), err
}

// checkOracleReliable prices both sides of pool via C3 and aborts with
// ORACLE_UNRELIABLE if either reading is unreliable (spec §4.5 step 2).
func (c *Composer) checkOracleReliable(ctx context.Context, pool *venue.Pool) error {
	for _, mint := range []solana.PublicKey{pool.TokenA.Mint, pool.TokenB.Mint} {
		result, err := c.oracle.GetPrice(ctx, mint)
		if err != nil {
			return err
		}
		if result.Unreliable {
			return errs.New(errs.OracleUnreliable, fmt.Sprintf("oracle price for %s is unreliable", mint))
		}
	}
	return nil
}

// synthesizeSwapLegs implements spec §4.5 step 3's branching: collateral
// equal to one pool side swaps only the other half; collateral equal to
// neither side splits in half and swaps both legs.
func (c *Composer) synthesizeSwapLegs(ctx context.Context, owner solana.PublicKey, pool *venue.Pool, collateralMint solana.PublicKey, collateralAmount cosmath.Int, slippageBps int) ([]solana.Instruction, venue.Amounts, error) {
	half := collateralAmount.Quo(cosmath.NewInt(2))
	remainder := collateralAmount.Sub(half)

	switch {
	case collateralMint.Equals(pool.TokenA.Mint):
		quote, err := c.router.Quote(ctx, pool.TokenA.Mint, pool.TokenB.Mint, half, slippageBps)
		if err != nil {
			return nil, venue.Amounts{}, err
		}
		ixs, err := c.router.Swap(ctx, quote, owner)
		if err != nil {
			return nil, venue.Amounts{}, err
		}
		return ixs, venue.Amounts{A: remainder, B: quote.OutAmount}, nil

	case collateralMint.Equals(pool.TokenB.Mint):
		quote, err := c.router.Quote(ctx, pool.TokenB.Mint, pool.TokenA.Mint, half, slippageBps)
		if err != nil {
			return nil, venue.Amounts{}, err
		}
		ixs, err := c.router.Swap(ctx, quote, owner)
		if err != nil {
			return nil, venue.Amounts{}, err
		}
		return ixs, venue.Amounts{A: quote.OutAmount, B: remainder}, nil

	default:
		quoteA, err := c.router.Quote(ctx, collateralMint, pool.TokenA.Mint, half, slippageBps)
		if err != nil {
			return nil, venue.Amounts{}, err
		}
		ixsA, err := c.router.Swap(ctx, quoteA, owner)
		if err != nil {
			return nil, venue.Amounts{}, err
		}
		quoteB, err := c.router.Quote(ctx, collateralMint, pool.TokenB.Mint, remainder, slippageBps)
		if err != nil {
			return nil, venue.Amounts{}, err
		}
		ixsB, err := c.router.Swap(ctx, quoteB, owner)
		if err != nil {
			return nil, venue.Amounts{}, err
		}
		return append(ixsA, ixsB...), venue.Amounts{A: quoteA.OutAmount, B: quoteB.OutAmount}, nil
	}
}

// buildTransaction finalizes spec §4.5 step 7: simulate a draft built with
// a placeholder blockhash to size the compute budget, prepend the
// resulting compute-budget instructions, then rebuild against a freshly
// fetched blockhash.
func (c *Composer) buildTransaction(ctx context.Context, payer solana.PublicKey, ixs []solana.Instruction, urgency venue.TipUrgency) (*solana.Transaction, error) {
	draft, err := solana.NewTransaction(ixs, solana.Hash{}, solana.TransactionPayer(payer))
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "build draft transaction", err)
	}

	est, err := c.estimator.Estimate(ctx, draft, budgetUrgencyFor(urgency))
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "estimate compute budget", err)
	}

	finalIxs := budget.PrependComputeBudgetInstructions(ixs, est)

	bh, err := c.blockhash.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, errs.Wrap(errs.RPCUnavailable, "fetch latest blockhash", err)
	}

	tx, err := solana.NewTransaction(finalIxs, bh.Value.Blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "build final transaction", err)
	}
	return tx, nil
}

// budgetUrgencyFor maps the venue-facing urgency (which also drives the
// tip schedule) onto C4's priority-fee percentile tiers.
func budgetUrgencyFor(u venue.TipUrgency) budget.Urgency {
	switch u {
	case venue.Turbo:
		return budget.Critical
	case venue.Fast:
		return budget.High
	default:
		return budget.Medium
	}
}

func positionIDFromSigners(signers []solana.PrivateKey) string {
	if len(signers) == 0 {
		return ""
	}
	return signers[0].PublicKey().String()
}
