package pipeline

import (
	"context"
	"testing"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/solana-zh/lp-engine/internal/budget"
	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/oracle"
	"github.com/solana-zh/lp-engine/internal/seal"
	"github.com/solana-zh/lp-engine/internal/submission"
	"github.com/solana-zh/lp-engine/internal/swaprouter"
	"github.com/solana-zh/lp-engine/internal/venue"
)

// --- fakes ---

type fakeAdapter struct {
	v                 venue.Venue
	pool              *venue.Pool
	failSlippageBelow int
	quoteCalls        []int
	openPlan          venue.InstructionPlan
	openErr           error
	decreasePlan      venue.InstructionPlan
	decreaseErr       error
	collectFeesPlan   venue.InstructionPlan
}

func (a *fakeAdapter) Venue() venue.Venue { return a.v }
func (a *fakeAdapter) DescribePool(ctx context.Context, addr solana.PublicKey) (*venue.Pool, error) {
	return a.pool, nil
}
func (a *fakeAdapter) ComputeRange(ctx context.Context, pool *venue.Pool, shape venue.RangeShape, custom *venue.Range) (venue.Range, error) {
	return venue.Range{Lower: pool.ActiveIndex - 50, Upper: pool.ActiveIndex + 50}, nil
}
func (a *fakeAdapter) QuoteLiquidity(ctx context.Context, pool *venue.Pool, rng venue.Range, in venue.Amounts, slippageBps int) (venue.LiquidityQuote, error) {
	a.quoteCalls = append(a.quoteCalls, slippageBps)
	if slippageBps < a.failSlippageBelow {
		return venue.LiquidityQuote{}, errs.New(errs.SlippageExceeded, "slippage exceeded")
	}
	return venue.LiquidityQuote{Liquidity: cosmath.NewInt(1)}, nil
}
func (a *fakeAdapter) BuildOpen(ctx context.Context, pool *venue.Pool, rng venue.Range, amounts venue.Amounts, owner solana.PublicKey, dist venue.DistributionShape, vanityPrefix string) (venue.InstructionPlan, error) {
	return a.openPlan, a.openErr
}
func (a *fakeAdapter) BuildDecrease(ctx context.Context, pos *venue.Position, bps int, closeIfFull bool) (venue.InstructionPlan, error) {
	return a.decreasePlan, a.decreaseErr
}
func (a *fakeAdapter) BuildCollectFees(ctx context.Context, pos *venue.Position) (venue.InstructionPlan, error) {
	return a.collectFeesPlan, nil
}
func (a *fakeAdapter) EnumeratePositions(ctx context.Context, wallet solana.PublicKey) ([]venue.Position, error) {
	return nil, nil
}

type fakeOracle struct {
	unreliable map[string]bool
}

func (f fakeOracle) GetPrice(ctx context.Context, mint solana.PublicKey) (oracle.Result, error) {
	if f.unreliable[mint.String()] {
		return oracle.Result{Unreliable: true}, nil
	}
	return oracle.Result{Price: cosmath.LegacyNewDec(1)}, nil
}

type fakeRouter struct {
	quoteErr error
	swapErr  error
}

func (r *fakeRouter) Quote(ctx context.Context, inMint, outMint solana.PublicKey, amount cosmath.Int, slippageBps int) (swaprouter.Quote, error) {
	if r.quoteErr != nil {
		return swaprouter.Quote{}, r.quoteErr
	}
	return swaprouter.Quote{InMint: inMint, OutMint: outMint, InAmount: amount, OutAmount: amount, WorstCaseOut: amount}, nil
}

func (r *fakeRouter) Swap(ctx context.Context, quote swaprouter.Quote, owner solana.PublicKey) ([]solana.Instruction, error) {
	if r.swapErr != nil {
		return nil, r.swapErr
	}
	return []solana.Instruction{system.NewTransferInstruction(1, owner, owner).Build()}, nil
}

type fakeDriver struct {
	outcome submission.Outcome
	err     error
	calls   int
}

func (d *fakeDriver) SubmitBundle(ctx context.Context, wallet solana.PublicKey, signers []solana.PrivateKey, tipAmount uint64, tx *solana.Transaction) (submission.Outcome, error) {
	d.calls++
	return d.outcome, d.err
}

type fakeEstimator struct{}

func (fakeEstimator) Estimate(ctx context.Context, tx *solana.Transaction, urgency budget.Urgency) (budget.Estimate, error) {
	return budget.Estimate{ComputeUnitLimit: 200_000, PriorityFeeMicroLamports: 1_000}, nil
}

type fakeSealer struct{}

func (fakeSealer) Seal(v any) (seal.Envelope, error) { return seal.Envelope{Cluster: "test"}, nil }

type fakeIndexer struct{ invalidated int }

func (f *fakeIndexer) Invalidate(wallet solana.PublicKey) { f.invalidated++ }

type fakeBlockhash struct{}

func (fakeBlockhash) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{}}}, nil
}

// --- test scaffolding ---

var (
	mintA   = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	mintB   = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	owner   = solana.NewWallet().PublicKey()
	treasury = solana.NewWallet().PublicKey()
)

func testPool() *venue.Pool {
	return &venue.Pool{
		Address:     solana.NewWallet().PublicKey(),
		Venue:       venue.DLMM,
		TokenA:      venue.Token{Mint: mintA, Symbol: "SOL", Decimals: 9},
		TokenB:      venue.Token{Mint: mintB, Symbol: "USDC", Decimals: 6},
		BinStep:     10,
		ActiveIndex: 5000,
	}
}

func newComposer(a *fakeAdapter, oc fakeOracle, rt *fakeRouter, dr *fakeDriver, idx *fakeIndexer) *Composer {
	return &Composer{
		registry:  venue.Registry{venue.DLMM: a},
		oracle:    oc,
		estimator: fakeEstimator{},
		router:    rt,
		driver:    dr,
		sealer:    fakeSealer{},
		indexer:   idx,
		blockhash: fakeBlockhash{},
		locks:     NewWalletLocks(),
		treasury:  treasury,
		feeBps:    100,
	}
}

// --- tests ---

func TestOpenAtomicHappyPath(t *testing.T) {
	adapter := &fakeAdapter{v: venue.DLMM, pool: testPool(), openPlan: venue.InstructionPlan{
		Instructions: []solana.Instruction{system.NewTransferInstruction(1, owner, owner).Build()},
	}}
	driver := &fakeDriver{outcome: submission.Outcome{BundleOutcome: "LANDED"}}
	idx := &fakeIndexer{}
	c := newComposer(adapter, fakeOracle{}, &fakeRouter{}, driver, idx)

	req := OpenRequest{
		Owner: owner,
		Strategy: venue.Strategy{
			Venue:            venue.DLMM,
			Pool:             adapter.pool.Address,
			CollateralMint:   mintA,
			CollateralAmount: cosmath.NewInt(500_000_000),
			RangeShape:       venue.Concentrated,
			Distribution:     venue.Spot,
			SlippageBps:      300,
			Urgency:          venue.Fast,
		},
	}

	result, err := c.OpenAtomic(context.Background(), req)
	if err != nil {
		t.Fatalf("OpenAtomic: %v", err)
	}
	if result.SlippageUsed != 300 {
		t.Fatalf("expected slippage 300, got %d", result.SlippageUsed)
	}
	if idx.invalidated != 1 {
		t.Fatalf("expected position cache invalidated once, got %d", idx.invalidated)
	}
	if driver.calls != 1 {
		t.Fatalf("expected exactly one submit call, got %d", driver.calls)
	}
}

func TestOpenAtomicSlippageEscalatesThenLands(t *testing.T) {
	adapter := &fakeAdapter{v: venue.DLMM, pool: testPool(), failSlippageBelow: 750, openPlan: venue.InstructionPlan{
		Instructions: []solana.Instruction{system.NewTransferInstruction(1, owner, owner).Build()},
	}}
	driver := &fakeDriver{outcome: submission.Outcome{BundleOutcome: "LANDED"}}
	idx := &fakeIndexer{}
	c := newComposer(adapter, fakeOracle{}, &fakeRouter{}, driver, idx)

	req := OpenRequest{
		Owner: owner,
		Strategy: venue.Strategy{
			Venue:            venue.DLMM,
			Pool:             adapter.pool.Address,
			CollateralMint:   mintA,
			CollateralAmount: cosmath.NewInt(500_000_000),
			RangeShape:       venue.Concentrated,
			Distribution:     venue.Spot,
			SlippageBps:      300,
			Urgency:          venue.Fast,
		},
	}

	result, err := c.OpenAtomic(context.Background(), req)
	if err != nil {
		t.Fatalf("OpenAtomic: %v", err)
	}
	if result.SlippageUsed != 750 {
		t.Fatalf("expected escalation to land at 750bps, got %d", result.SlippageUsed)
	}
	want := []int{300, 500, 750}
	if len(adapter.quoteCalls) != len(want) {
		t.Fatalf("expected quote calls %v, got %v", want, adapter.quoteCalls)
	}
	for i, bps := range want {
		if adapter.quoteCalls[i] != bps {
			t.Fatalf("expected quote call %d at %dbps, got %d", i, bps, adapter.quoteCalls[i])
		}
	}
}

func TestOpenAtomicSlippageExhausted(t *testing.T) {
	adapter := &fakeAdapter{v: venue.DLMM, pool: testPool(), failSlippageBelow: 10_000}
	driver := &fakeDriver{outcome: submission.Outcome{BundleOutcome: "LANDED"}}
	idx := &fakeIndexer{}
	c := newComposer(adapter, fakeOracle{}, &fakeRouter{}, driver, idx)

	req := OpenRequest{
		Owner: owner,
		Strategy: venue.Strategy{
			Venue:            venue.DLMM,
			Pool:             adapter.pool.Address,
			CollateralMint:   mintA,
			CollateralAmount: cosmath.NewInt(500_000_000),
			SlippageBps:      300,
			Urgency:          venue.Fast,
		},
	}

	_, err := c.OpenAtomic(context.Background(), req)
	if errs.KindOf(err) != errs.SlippageExhausted {
		t.Fatalf("expected SLIPPAGE_EXHAUSTED, got %v", err)
	}
	if driver.calls != 0 {
		t.Fatalf("expected no submit call once every tier fails, got %d", driver.calls)
	}
}

func TestOpenAtomicOracleUnreliableAbortsBeforeSwap(t *testing.T) {
	adapter := &fakeAdapter{v: venue.DLMM, pool: testPool()}
	driver := &fakeDriver{}
	idx := &fakeIndexer{}
	oc := fakeOracle{unreliable: map[string]bool{mintB.String(): true}}
	c := newComposer(adapter, oc, &fakeRouter{}, driver, idx)

	req := OpenRequest{
		Owner: owner,
		Strategy: venue.Strategy{
			Venue:            venue.DLMM,
			Pool:             adapter.pool.Address,
			CollateralMint:   mintA,
			CollateralAmount: cosmath.NewInt(500_000_000),
			SlippageBps:      300,
			Urgency:          venue.Fast,
		},
	}

	_, err := c.OpenAtomic(context.Background(), req)
	if errs.KindOf(err) != errs.OracleUnreliable {
		t.Fatalf("expected ORACLE_UNRELIABLE, got %v", err)
	}
	if len(adapter.quoteCalls) != 0 {
		t.Fatalf("expected no liquidity quote once oracle gate fails, got %d calls", len(adapter.quoteCalls))
	}
	if driver.calls != 0 {
		t.Fatalf("expected no submit call once oracle gate fails, got %d", driver.calls)
	}
}

func TestOpenAtomicWalletBusyOnContention(t *testing.T) {
	adapter := &fakeAdapter{v: venue.DLMM, pool: testPool()}
	c := newComposer(adapter, fakeOracle{}, &fakeRouter{}, &fakeDriver{}, &fakeIndexer{})

	release, err := c.locks.TryLock(owner)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	defer release()

	_, err = c.OpenAtomic(context.Background(), OpenRequest{Owner: owner, Strategy: venue.Strategy{Venue: venue.DLMM}})
	if errs.KindOf(err) != errs.WalletBusy {
		t.Fatalf("expected WALLET_BUSY, got %v", err)
	}
}

func TestWithdrawSwapFailureFallsBackWithNoFee(t *testing.T) {
	pool := testPool()
	adapter := &fakeAdapter{v: venue.DLMM, pool: pool, decreasePlan: venue.InstructionPlan{
		Instructions: []solana.Instruction{system.NewTransferInstruction(1, owner, owner).Build()},
	}}
	driver := &fakeDriver{outcome: submission.Outcome{BundleOutcome: "LANDED"}}
	idx := &fakeIndexer{}
	router := &fakeRouter{swapErr: errs.New(errs.VenueUnavailable, "swap router unavailable")}
	c := newComposer(adapter, fakeOracle{}, router, driver, idx)

	convertTo := mintA
	req := WithdrawRequest{
		Owner: owner,
		Position: venue.Position{
			Venue:      venue.DLMM,
			Pool:       pool.Address,
			DepositedA: cosmath.ZeroInt(),
			DepositedB: cosmath.NewInt(1_000_000),
		},
		ConvertTo:   &convertTo,
		SlippageBps: 300,
		Urgency:     venue.Fast,
	}

	result, err := c.Withdraw(context.Background(), req)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if result.Converted {
		t.Fatalf("expected converted=false after swap failure")
	}
	if result.Reason != "swap_unavailable" {
		t.Fatalf("expected reason swap_unavailable, got %q", result.Reason)
	}
	if !result.FeeAmount.IsZero() {
		t.Fatalf("expected no protocol fee when swap fails, got %s", result.FeeAmount)
	}
}

func TestWithdrawConvertsAndTakesFee(t *testing.T) {
	pool := testPool()
	adapter := &fakeAdapter{v: venue.DLMM, pool: pool, decreasePlan: venue.InstructionPlan{
		Instructions: []solana.Instruction{system.NewTransferInstruction(1, owner, owner).Build()},
	}}
	driver := &fakeDriver{outcome: submission.Outcome{BundleOutcome: "LANDED"}}
	idx := &fakeIndexer{}
	c := newComposer(adapter, fakeOracle{}, &fakeRouter{}, driver, idx)

	convertTo := mintA
	req := WithdrawRequest{
		Owner: owner,
		Position: venue.Position{
			Venue:      venue.DLMM,
			Pool:       pool.Address,
			DepositedA: cosmath.ZeroInt(),
			DepositedB: cosmath.NewInt(1_000_000),
		},
		ConvertTo:   &convertTo,
		SlippageBps: 300,
		Urgency:     venue.Fast,
	}

	result, err := c.Withdraw(context.Background(), req)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if !result.Converted {
		t.Fatalf("expected converted=true")
	}
	want := cosmath.NewInt(1_000_000 * 100 / 10_000)
	if !result.FeeAmount.Equal(want) {
		t.Fatalf("expected fee %s, got %s", want, result.FeeAmount)
	}
	if idx.invalidated != 1 {
		t.Fatalf("expected position cache invalidated once, got %d", idx.invalidated)
	}
}

func TestRebalanceRecentersRangeAndOpensFresh(t *testing.T) {
	pool := testPool()
	pool.ActiveIndex = 5200
	adapter := &fakeAdapter{
		v:    venue.DLMM,
		pool: pool,
		decreasePlan: venue.InstructionPlan{
			Instructions: []solana.Instruction{system.NewTransferInstruction(1, owner, owner).Build()},
		},
		openPlan: venue.InstructionPlan{
			Instructions: []solana.Instruction{system.NewTransferInstruction(1, owner, owner).Build()},
		},
	}
	driver := &fakeDriver{outcome: submission.Outcome{BundleOutcome: "LANDED"}}
	idx := &fakeIndexer{}
	c := newComposer(adapter, fakeOracle{}, &fakeRouter{}, driver, idx)

	req := RebalanceRequest{
		Owner: owner,
		OldPosition: venue.Position{
			Venue:      venue.DLMM,
			Pool:       pool.Address,
			Range:      venue.Range{Lower: 4950, Upper: 5050},
			DepositedA: cosmath.NewInt(1_000_000),
			DepositedB: cosmath.NewInt(1_000_000),
		},
		SlippageBps: 300,
		Urgency:     venue.Fast,
	}

	result, err := c.Rebalance(context.Background(), req)
	if err != nil {
		t.Fatalf("Rebalance: %v", err)
	}
	wantWidth := 100
	gotWidth := int(result.NewRange.Upper - result.NewRange.Lower)
	if gotWidth != wantWidth {
		t.Fatalf("expected rebalanced range to preserve width %d, got %d", wantWidth, gotWidth)
	}
	if result.NewRange.Lower > pool.ActiveIndex || result.NewRange.Upper < pool.ActiveIndex {
		t.Fatalf("expected new range %+v to straddle active index %d", result.NewRange, pool.ActiveIndex)
	}
	if idx.invalidated != 1 {
		t.Fatalf("expected position cache invalidated once, got %d", idx.invalidated)
	}
}
