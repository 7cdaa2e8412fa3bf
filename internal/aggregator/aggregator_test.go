package aggregator

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/venue"
)

type fakeLister struct {
	pools []venue.Pool
	err   error
}

func (f fakeLister) ListPools(ctx context.Context) ([]venue.Pool, error) {
	return f.pools, f.err
}

var (
	usdc = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	sol_ = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	bonk = solana.MustPublicKeyFromBase58("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
)

func TestListDedupesByPairKeepingHighestAPR(t *testing.T) {
	poolLow := venue.Pool{
		Address: solana.NewWallet().PublicKey(), Venue: venue.WHIRLPOOL,
		TokenA: venue.Token{Mint: sol_, Symbol: "SOL"}, TokenB: venue.Token{Mint: usdc, Symbol: "USDC"},
		TVL: venue.DecFromFloat(2_000_000), APR: 0.05,
	}
	poolHigh := venue.Pool{
		Address: solana.NewWallet().PublicKey(), Venue: venue.CLMM,
		TokenA: venue.Token{Mint: sol_, Symbol: "SOL"}, TokenB: venue.Token{Mint: usdc, Symbol: "USDC"},
		TVL: venue.DecFromFloat(2_000_000), APR: 0.12,
	}

	agg := New(map[venue.Venue]venue.Lister{
		venue.WHIRLPOOL: fakeLister{pools: []venue.Pool{poolLow}},
		venue.CLMM:      fakeLister{pools: []venue.Pool{poolHigh}},
	})

	out, err := agg.List(context.Background(), Filter{Sort: ByAPR})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 deduped pool, got %d", len(out))
	}
	if out[0].APR != 0.12 {
		t.Fatalf("expected highest-APR pool kept, got APR %v", out[0].APR)
	}
}

func TestListFiltersByMinTVL(t *testing.T) {
	thin := venue.Pool{
		Address: solana.NewWallet().PublicKey(), Venue: venue.DLMM,
		TokenA: venue.Token{Mint: sol_, Symbol: "SOL"}, TokenB: venue.Token{Mint: bonk, Symbol: "BONK"},
		TVL: venue.DecFromFloat(1_000), APR: 0.2,
	}
	agg := New(map[venue.Venue]venue.Lister{
		venue.DLMM: fakeLister{pools: []venue.Pool{thin}},
	})

	out, err := agg.List(context.Background(), Filter{MinTVL: venue.DecFromFloat(10_000), Sort: ByAPR})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected pool below minTVL to be filtered out, got %d", len(out))
	}
}

func TestOneVenueErrorDoesNotFailWholeFetch(t *testing.T) {
	good := venue.Pool{
		Address: solana.NewWallet().PublicKey(), Venue: venue.WHIRLPOOL,
		TokenA: venue.Token{Mint: sol_, Symbol: "SOL"}, TokenB: venue.Token{Mint: usdc, Symbol: "USDC"},
		TVL: venue.DecFromFloat(2_000_000), APR: 0.08,
	}
	agg := New(map[venue.Venue]venue.Lister{
		venue.WHIRLPOOL: fakeLister{pools: []venue.Pool{good}},
		venue.CLMM:      fakeLister{err: context.DeadlineExceeded},
	})

	out, err := agg.List(context.Background(), Filter{Sort: ByAPR})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected the surviving venue's pool, got %d", len(out))
	}
}

func TestBestPoolForPairMatchesEitherOrder(t *testing.T) {
	p := venue.Pool{
		Address: solana.NewWallet().PublicKey(), Venue: venue.WHIRLPOOL,
		TokenA: venue.Token{Mint: usdc, Symbol: "USDC"}, TokenB: venue.Token{Mint: sol_, Symbol: "SOL"},
		TVL: venue.DecFromFloat(2_000_000), APR: 0.09,
	}
	agg := New(map[venue.Venue]venue.Lister{
		venue.WHIRLPOOL: fakeLister{pools: []venue.Pool{p}},
	})

	best, err := agg.BestPoolForPair(context.Background(), "SOL", "USDC")
	if err != nil {
		t.Fatalf("BestPoolForPair: %v", err)
	}
	if best.APR != 0.09 {
		t.Fatalf("unexpected pool returned: %+v", best)
	}
}

func TestRiskScoreStableStablePairClampsToFloor(t *testing.T) {
	p := venue.Pool{
		TokenA:    venue.Token{Mint: usdc},
		TokenB:    venue.Token{Mint: usdc},
		TVL:       venue.DecFromFloat(5_000_000),
		Volume24h: venue.DecFromFloat(1_000_000),
	}
	if got := RiskScore(p); got != 1 {
		t.Fatalf("expected floor risk score 1 for deep stable pair, got %d", got)
	}
}

func TestRiskScorePenalizesThinTVLAndVolatility(t *testing.T) {
	p := venue.Pool{
		TokenA:    venue.Token{Mint: sol_},
		TokenB:    venue.Token{Mint: bonk},
		TVL:       venue.DecFromFloat(10_000),
		Volume24h: venue.DecFromFloat(1),
	}
	got := RiskScore(p)
	if got < 5 {
		t.Fatalf("expected a high risk score for thin, volatile, low-volume pool, got %d", got)
	}
	if got > 10 {
		t.Fatalf("risk score must clamp to 10, got %d", got)
	}
}
