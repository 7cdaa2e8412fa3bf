package position

import (
	"context"
	"testing"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/venue"
)

type fakeAdapter struct {
	v         venue.Venue
	positions []venue.Position
	err       error
	calls     int
}

func (f *fakeAdapter) Venue() venue.Venue { return f.v }
func (f *fakeAdapter) DescribePool(ctx context.Context, addr solana.PublicKey) (*venue.Pool, error) {
	return nil, nil
}
func (f *fakeAdapter) ComputeRange(ctx context.Context, pool *venue.Pool, shape venue.RangeShape, custom *venue.Range) (venue.Range, error) {
	return venue.Range{}, nil
}
func (f *fakeAdapter) QuoteLiquidity(ctx context.Context, pool *venue.Pool, rng venue.Range, in venue.Amounts, slippageBps int) (venue.LiquidityQuote, error) {
	return venue.LiquidityQuote{}, nil
}
func (f *fakeAdapter) BuildOpen(ctx context.Context, pool *venue.Pool, rng venue.Range, amounts venue.Amounts, owner solana.PublicKey, dist venue.DistributionShape, vanityPrefix string) (venue.InstructionPlan, error) {
	return venue.InstructionPlan{}, nil
}
func (f *fakeAdapter) BuildDecrease(ctx context.Context, pos *venue.Position, bps int, closeIfFull bool) (venue.InstructionPlan, error) {
	return venue.InstructionPlan{}, nil
}
func (f *fakeAdapter) BuildCollectFees(ctx context.Context, pos *venue.Position) (venue.InstructionPlan, error) {
	return venue.InstructionPlan{}, nil
}
func (f *fakeAdapter) EnumeratePositions(ctx context.Context, wallet solana.PublicKey) ([]venue.Position, error) {
	f.calls++
	return f.positions, f.err
}

var wallet = solana.NewWallet().PublicKey()

func TestListMergesPositionsAcrossVenues(t *testing.T) {
	wp := &fakeAdapter{v: venue.WHIRLPOOL, positions: []venue.Position{
		{ID: "a", Venue: venue.WHIRLPOOL, Owner: wallet, Liquidity: cosmath.NewInt(100)},
	}}
	dl := &fakeAdapter{v: venue.DLMM, positions: []venue.Position{
		{ID: "b", Venue: venue.DLMM, Owner: wallet, Liquidity: cosmath.NewInt(200)},
	}}

	idx := New(venue.Registry{venue.WHIRLPOOL: wp, venue.DLMM: dl})

	out, err := idx.List(context.Background(), wallet)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 positions across venues, got %d", len(out))
	}
}

func TestListOneVenueErrorDoesNotFailWholeCall(t *testing.T) {
	wp := &fakeAdapter{v: venue.WHIRLPOOL, positions: []venue.Position{
		{ID: "a", Venue: venue.WHIRLPOOL, Owner: wallet},
	}}
	broken := &fakeAdapter{v: venue.CLMM, err: errTest}

	idx := New(venue.Registry{venue.WHIRLPOOL: wp, venue.CLMM: broken})

	out, err := idx.List(context.Background(), wallet)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 position from the healthy venue, got %d", len(out))
	}
}

func TestListServesCacheWithinTTL(t *testing.T) {
	wp := &fakeAdapter{v: venue.WHIRLPOOL, positions: []venue.Position{
		{ID: "a", Venue: venue.WHIRLPOOL, Owner: wallet},
	}}
	idx := New(venue.Registry{venue.WHIRLPOOL: wp})

	if _, err := idx.List(context.Background(), wallet); err != nil {
		t.Fatalf("List: %v", err)
	}
	if _, err := idx.List(context.Background(), wallet); err != nil {
		t.Fatalf("List: %v", err)
	}
	if wp.calls != 1 {
		t.Fatalf("expected second List within TTL to hit cache, adapter called %d times", wp.calls)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	wp := &fakeAdapter{v: venue.WHIRLPOOL, positions: []venue.Position{
		{ID: "a", Venue: venue.WHIRLPOOL, Owner: wallet},
	}}
	idx := New(venue.Registry{venue.WHIRLPOOL: wp})

	if _, err := idx.List(context.Background(), wallet); err != nil {
		t.Fatalf("List: %v", err)
	}
	idx.Invalidate(wallet)
	if _, err := idx.List(context.Background(), wallet); err != nil {
		t.Fatalf("List: %v", err)
	}
	if wp.calls != 2 {
		t.Fatalf("expected Invalidate to force a refetch, adapter called %d times", wp.calls)
	}
}

func TestListExpiresCacheAfterTTL(t *testing.T) {
	wp := &fakeAdapter{v: venue.WHIRLPOOL}
	idx := New(venue.Registry{venue.WHIRLPOOL: wp})
	idx.cache.Store(wallet, cacheEntry{fetched: time.Now().Add(-cacheTTL - time.Second)})

	if _, err := idx.List(context.Background(), wallet); err != nil {
		t.Fatalf("List: %v", err)
	}
	if wp.calls != 1 {
		t.Fatalf("expected expired cache entry to trigger a refetch, adapter called %d times", wp.calls)
	}
}

var errTest = errStub{}

type errStub struct{}

func (errStub) Error() string { return "venue scan failed" }
