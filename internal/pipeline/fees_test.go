package pipeline

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/submission"
	"github.com/solana-zh/lp-engine/internal/venue"
)

func collectFeesPlan() venue.InstructionPlan {
	return venue.InstructionPlan{
		Instructions: []solana.Instruction{system.NewTransferInstruction(1, owner, owner).Build()},
	}
}

func TestCollectFeesHappyPath(t *testing.T) {
	pool := testPool()
	adapter := &fakeAdapter{v: venue.DLMM, pool: pool, collectFeesPlan: collectFeesPlan()}
	driver := &fakeDriver{outcome: submission.Outcome{BundleOutcome: "LANDED"}}
	idx := &fakeIndexer{}
	c := newComposer(adapter, fakeOracle{}, &fakeRouter{}, driver, idx)

	req := CollectFeesRequest{
		Owner: owner,
		Position: venue.Position{
			Venue: venue.DLMM,
			Pool:  pool.Address,
		},
		Urgency: venue.Fast,
	}

	outcome, err := c.CollectFees(context.Background(), req)
	if err != nil {
		t.Fatalf("CollectFees: %v", err)
	}
	if outcome.BundleOutcome != "LANDED" {
		t.Fatalf("expected landed outcome, got %v", outcome.BundleOutcome)
	}
	if driver.calls != 1 {
		t.Fatalf("expected exactly one submit call, got %d", driver.calls)
	}
	if idx.invalidated != 1 {
		t.Fatalf("expected position cache invalidated once, got %d", idx.invalidated)
	}
}

func TestCollectFeesUnsupportedVenue(t *testing.T) {
	pool := testPool()
	adapter := &fakeAdapter{v: venue.DLMM, pool: pool}
	c := newComposer(adapter, fakeOracle{}, &fakeRouter{}, &fakeDriver{}, &fakeIndexer{})

	req := CollectFeesRequest{
		Owner:    owner,
		Position: venue.Position{Venue: venue.WHIRLPOOL, Pool: pool.Address},
		Urgency:  venue.Fast,
	}

	_, err := c.CollectFees(context.Background(), req)
	if errs.KindOf(err) != errs.UnsupportedPoolType {
		t.Fatalf("expected UNSUPPORTED_POOL_TYPE, got %v", err)
	}
}

func TestCollectFeesWalletBusyOnContention(t *testing.T) {
	pool := testPool()
	adapter := &fakeAdapter{v: venue.DLMM, pool: pool}
	c := newComposer(adapter, fakeOracle{}, &fakeRouter{}, &fakeDriver{}, &fakeIndexer{})

	release, err := c.locks.TryLock(owner)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	defer release()

	_, err = c.CollectFees(context.Background(), CollectFeesRequest{
		Owner:    owner,
		Position: venue.Position{Venue: venue.DLMM, Pool: pool.Address},
	})
	if errs.KindOf(err) != errs.WalletBusy {
		t.Fatalf("expected WALLET_BUSY, got %v", err)
	}
}

func TestCollectFeesPropagatesSubmitFailure(t *testing.T) {
	pool := testPool()
	adapter := &fakeAdapter{v: venue.DLMM, pool: pool, collectFeesPlan: collectFeesPlan()}
	driver := &fakeDriver{err: errs.New(errs.BundleDropped, "dropped")}
	c := newComposer(adapter, fakeOracle{}, &fakeRouter{}, driver, &fakeIndexer{})

	_, err := c.CollectFees(context.Background(), CollectFeesRequest{
		Owner:    owner,
		Position: venue.Position{Venue: venue.DLMM, Pool: pool.Address},
	})
	if errs.KindOf(err) != errs.BundleDropped {
		t.Fatalf("expected BUNDLE_DROPPED, got %v", err)
	}
	if driver.calls != 1 {
		t.Fatalf("expected one submit attempt, got %d", driver.calls)
	}
}
