package oracle

import (
	"context"
	"testing"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

type fakeSource struct {
	name    string
	reading Reading
	err     error
}

func (f fakeSource) Name() string { return f.name }
func (f fakeSource) FetchPrice(ctx context.Context, mint solana.PublicKey) (Reading, error) {
	return f.reading, f.err
}

var wsol = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

func TestGetPriceMediansTwoLiveReadings(t *testing.T) {
	now := time.Now()
	primary := fakeSource{name: "primary", reading: Reading{
		Price: cosmath.LegacyNewDec(100), Confidence: cosmath.LegacyNewDecWithPrec(5, 1), PublishTime: now,
	}}
	secondary := fakeSource{name: "secondary", reading: Reading{
		Price: cosmath.LegacyNewDecWithPrec(1002, 1), PublishTime: now,
	}}

	agg := New(primary, secondary)
	result, err := agg.GetPrice(context.Background(), wsol)
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if result.Unreliable {
		t.Fatalf("expected reliable result, got unreliable")
	}
	want := cosmath.LegacyNewDecWithPrec(1001, 1) // (100+100.2)/2 = 100.1
	if !result.Price.Equal(want) {
		t.Fatalf("expected median price %s, got %s", want, result.Price)
	}
}

func TestGetPriceUnreliableWhenAllStale(t *testing.T) {
	stale := time.Now().Add(-time.Minute)
	primary := fakeSource{name: "primary", reading: Reading{Price: cosmath.LegacyNewDec(100), PublishTime: stale}}
	secondary := fakeSource{name: "secondary", reading: Reading{Price: cosmath.LegacyNewDec(100), PublishTime: stale}}

	agg := New(primary, secondary)
	result, err := agg.GetPrice(context.Background(), wsol)
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if !result.Unreliable {
		t.Fatalf("expected unreliable result when every source is stale")
	}
}

func TestGetPriceUnreliableOnDivergence(t *testing.T) {
	now := time.Now()
	primary := fakeSource{name: "primary", reading: Reading{Price: cosmath.LegacyNewDec(100), PublishTime: now}}
	secondary := fakeSource{name: "secondary", reading: Reading{Price: cosmath.LegacyNewDec(102), PublishTime: now}}

	agg := New(primary, secondary)
	result, err := agg.GetPrice(context.Background(), wsol)
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if !result.Unreliable {
		t.Fatalf("expected unreliable result at 2%% divergence, well past the 0.5%% gate")
	}
}

func TestGetPriceIgnoresErroringSource(t *testing.T) {
	now := time.Now()
	primary := fakeSource{name: "primary", reading: Reading{Price: cosmath.LegacyNewDec(100), PublishTime: now}}
	secondary := fakeSource{name: "secondary", err: context.DeadlineExceeded}

	agg := New(primary, secondary)
	result, err := agg.GetPrice(context.Background(), wsol)
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if result.Unreliable {
		t.Fatalf("one live source should still produce a reliable result")
	}
	if !result.Price.Equal(cosmath.LegacyNewDec(100)) {
		t.Fatalf("expected the lone live reading's price, got %s", result.Price)
	}
}
