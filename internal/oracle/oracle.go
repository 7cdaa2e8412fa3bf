// Package oracle implements the oracle aggregator (C3): two independent
// price sources queried concurrently, reconciled into a single reading the
// rest of the engine treats as a hard gate for opening or rebalancing
// positions. Fan-out/fan-in follows the same goroutine+channel+WaitGroup
// shape as internal/aggregator, itself grounded on
// pkg/router/simple_router.go's GetBestPool.
package oracle

import (
	"context"
	"sort"
	"sync"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

const (
	perSourceTimeout  = 5 * time.Second
	stalenessWindow   = 30 * time.Second
	cacheTTL          = 10 * time.Second
	divergenceGateBps = 0.005 // 0.5%, inclusive: >= this gates unreliable
)

// Reading is a single source's price observation for a mint.
type Reading struct {
	Price       cosmath.LegacyDec
	Confidence  cosmath.LegacyDec // zero when the source carries none
	PublishTime time.Time
}

// Source is one price feed. The primary is a confidence-interval-bearing
// feed (Pyth-style); the secondary is a spot-only aggregator feed whose
// Confidence is always the zero value.
type Source interface {
	Name() string
	FetchPrice(ctx context.Context, mint solana.PublicKey) (Reading, error)
}

// Result is the aggregated, gated price the rest of the engine consumes.
type Result struct {
	Price      cosmath.LegacyDec
	Confidence cosmath.LegacyDec
	Unreliable bool
}

type cacheEntry struct {
	result  Result
	fetched time.Time
}

// Aggregator reconciles readings from exactly two sources per spec §4.3.
type Aggregator struct {
	primary   Source
	secondary Source
	cache     sync.Map // map[string]cacheEntry, keyed by mint base58
}

func New(primary, secondary Source) *Aggregator {
	return &Aggregator{primary: primary, secondary: secondary}
}

// GetPrice returns the aggregated price for mint, using the 10s cache when
// fresh. Unreliable=true is returned as a normal Result, not an error: the
// caller (C5) is the one that decides to gate on it.
func (a *Aggregator) GetPrice(ctx context.Context, mint solana.PublicKey) (Result, error) {
	key := mint.String()
	if entry, ok := a.cache.Load(key); ok {
		ce := entry.(cacheEntry)
		if time.Since(ce.fetched) < cacheTTL {
			return ce.result, nil
		}
	}

	readings := a.fetchBoth(ctx, mint)

	live := make([]Reading, 0, len(readings))
	now := time.Now()
	for _, r := range readings {
		if r == nil {
			continue
		}
		if now.Sub(r.PublishTime) > stalenessWindow {
			continue
		}
		live = append(live, *r)
	}

	result := reconcile(live)
	a.cache.Store(key, cacheEntry{result: result, fetched: time.Now()})
	return result, nil
}

// fetchBoth queries both sources concurrently, each bounded by its own 5s
// context.WithTimeout. A source that errors or times out contributes nil,
// the same "absent" treatment staleness gives a too-old reading.
func (a *Aggregator) fetchBoth(ctx context.Context, mint solana.PublicKey) []*Reading {
	sources := []Source{a.primary, a.secondary}
	results := make([]*Reading, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, perSourceTimeout)
			defer cancel()
			reading, err := src.FetchPrice(sctx, mint)
			if err != nil {
				return
			}
			results[i] = &reading
		}(i, src)
	}
	wg.Wait()
	return results
}

// reconcile computes the median of live prices, the widest confidence among
// them, and the unreliable gate: unreliable if there are no live readings,
// or if the maximum pairwise divergence between live prices is >= 0.5%.
func reconcile(live []Reading) Result {
	if len(live) == 0 {
		return Result{Unreliable: true}
	}

	prices := make([]float64, len(live))
	widestConfidence := cosmath.LegacyZeroDec()
	for i, r := range live {
		prices[i] = r.Price.MustFloat64()
		if r.Confidence.GT(widestConfidence) {
			widestConfidence = r.Confidence
		}
	}

	if len(prices) > 1 && maxPairwiseDivergence(prices) >= divergenceGateBps {
		return Result{Unreliable: true}
	}

	return Result{
		Price:      medianDec(live, prices),
		Confidence: widestConfidence,
		Unreliable: false,
	}
}

func maxPairwiseDivergence(prices []float64) float64 {
	max := 0.0
	for i := 0; i < len(prices); i++ {
		for j := i + 1; j < len(prices); j++ {
			lo, hi := prices[i], prices[j]
			if lo > hi {
				lo, hi = hi, lo
			}
			if lo == 0 {
				continue
			}
			d := (hi - lo) / lo
			if d > max {
				max = d
			}
		}
	}
	return max
}

// medianDec returns the median of the live LegacyDec readings, ordered by
// their float values: the middle reading when len(live) is odd, and the
// LegacyDec average of the two middle readings when it is even.
func medianDec(live []Reading, prices []float64) cosmath.LegacyDec {
	type indexed struct {
		price float64
		dec   cosmath.LegacyDec
	}
	items := make([]indexed, len(live))
	for i := range live {
		items[i] = indexed{price: prices[i], dec: live[i].Price}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].price < items[j].price })

	n := len(items)
	if n%2 == 1 {
		return items[n/2].dec
	}
	lo, hi := items[n/2-1].dec, items[n/2].dec
	return lo.Add(hi).QuoInt64(2)
}
