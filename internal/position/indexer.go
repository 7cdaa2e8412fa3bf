// Package position implements the position indexer (C7): a cross-venue
// view of a wallet's open liquidity positions, built by fanning out to
// every registered venue.Adapter's EnumeratePositions concurrently and
// caching the merged result per wallet. Grounded on the same
// goroutine+buffered-channel fan-out shape as internal/aggregator's
// fetchAll and internal/oracle's GetPrice.
package position

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/venue"
)

const cacheTTL = 30 * time.Second

type cacheEntry struct {
	positions []venue.Position
	fetched   time.Time
}

// Indexer answers "what does this wallet hold across every venue" without
// the caller needing to know which venues exist or how each one enumerates
// positions on-chain.
type Indexer struct {
	registry venue.Registry
	cache    sync.Map // map[solana.PublicKey]cacheEntry
}

func New(registry venue.Registry) *Indexer {
	return &Indexer{registry: registry}
}

// List returns every position wallet holds across all registered venues,
// using the cached entry when younger than cacheTTL. One venue's scan
// failure does not fail the whole call: a venue that errors contributes no
// positions, mirroring internal/aggregator's per-venue "skip and continue"
// behavior.
func (idx *Indexer) List(ctx context.Context, wallet solana.PublicKey) ([]venue.Position, error) {
	if entry, ok := idx.cache.Load(wallet); ok {
		ce := entry.(cacheEntry)
		if time.Since(ce.fetched) < cacheTTL {
			return ce.positions, nil
		}
	}

	type result struct {
		positions []venue.Position
	}

	resultChan := make(chan result, len(idx.registry))
	var wg sync.WaitGroup

	for _, adapter := range idx.registry {
		wg.Add(1)
		go func(a venue.Adapter) {
			defer wg.Done()
			positions, err := a.EnumeratePositions(ctx, wallet)
			if err != nil {
				resultChan <- result{}
				return
			}
			resultChan <- result{positions: positions}
		}(adapter)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var all []venue.Position
	for r := range resultChan {
		all = append(all, r.positions...)
	}

	idx.cache.Store(wallet, cacheEntry{positions: all, fetched: time.Now()})
	return all, nil
}

// Invalidate drops wallet's cached entry. internal/pipeline calls this
// after every submission that opens, closes, or resizes a position for
// wallet, so the next List call reflects the change instead of serving a
// stale cache hit for up to cacheTTL.
func (idx *Indexer) Invalidate(wallet solana.PublicKey) {
	idx.cache.Delete(wallet)
}
