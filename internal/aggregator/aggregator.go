// Package aggregator implements the pool aggregator (C2): concurrent
// per-venue pool discovery, TVL/risk filtering, cross-venue dedup and
// ranking. Grounded on the teacher's pkg/router/simple_router.go
// GetBestPool, generalized from "first matching pool per protocol" into a
// full fetch-filter-dedup-sort-select pipeline.
package aggregator

import (
	"context"
	"sort"
	"sync"
	"time"

	cosmath "cosmossdk.io/math"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/venue"
)

const cacheTTL = 60 * time.Second

// SortField selects the ranking dimension for List.
type SortField string

const (
	ByAPR              SortField = "apr"
	ByTVL              SortField = "tvl"
	ByVolume           SortField = "volume"
	ByRiskAdjustedYield SortField = "risk_adjusted_yield"
)

// Filter bounds the pools List returns.
type Filter struct {
	MinTVL       cosmath.LegacyDec
	MaxRiskScore int // 0 means unbounded
	Sort         SortField
}

type cacheEntry struct {
	pools   []venue.Pool
	fetched time.Time
}

// Aggregator fans a pool query out across every registered venue lister,
// caching each venue's raw list for cacheTTL before refetching.
type Aggregator struct {
	listers map[venue.Venue]venue.Lister
	cache   sync.Map // map[venue.Venue]cacheEntry
}

func New(listers map[venue.Venue]venue.Lister) *Aggregator {
	return &Aggregator{listers: listers}
}

// List returns every pool across all venues passing filter, deduplicated by
// unordered token-symbol pair (keeping the highest-APR pool per pair) and
// sorted per filter.Sort.
func (a *Aggregator) List(ctx context.Context, filter Filter) ([]venue.Pool, error) {
	raw, err := a.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]venue.Pool, 0, len(raw))
	for _, p := range raw {
		if !filter.MinTVL.IsNil() && p.TVL.LT(filter.MinTVL) {
			continue
		}
		p.RiskScore = RiskScore(p)
		if filter.MaxRiskScore > 0 && p.RiskScore > filter.MaxRiskScore {
			continue
		}
		filtered = append(filtered, p)
	}

	deduped := dedupByPair(filtered)
	sortPools(deduped, filter.Sort)
	return deduped, nil
}

// BestPoolForPair returns the single highest-APR pool across all venues
// whose token pair matches (a,b) in either order.
func (a *Aggregator) BestPoolForPair(ctx context.Context, symA, symB string) (*venue.Pool, error) {
	raw, err := a.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	var best *venue.Pool
	for i := range raw {
		p := &raw[i]
		if !matchesPair(*p, symA, symB) {
			continue
		}
		if best == nil || p.APR > best.APR {
			cp := *p
			best = &cp
		}
	}
	if best == nil {
		return nil, errs.New(errs.NotFound, "no pool found for pair")
	}
	return best, nil
}

// fetchAll concurrently fetches every registered venue's pool list, using
// each venue's cached entry when younger than cacheTTL. One venue's failure
// does not fail the whole call: a venue that errors contributes no pools,
// mirroring the teacher's per-protocol "log and continue" behavior in
// QueryAllPools.
func (a *Aggregator) fetchAll(ctx context.Context) ([]venue.Pool, error) {
	type result struct {
		pools []venue.Pool
	}

	resultChan := make(chan result, len(a.listers))
	var wg sync.WaitGroup

	for v, lister := range a.listers {
		wg.Add(1)
		go func(v venue.Venue, lister venue.Lister) {
			defer wg.Done()
			if entry, ok := a.cache.Load(v); ok {
				ce := entry.(cacheEntry)
				if time.Since(ce.fetched) < cacheTTL {
					resultChan <- result{pools: ce.pools}
					return
				}
			}
			pools, err := lister.ListPools(ctx)
			if err != nil {
				resultChan <- result{}
				return
			}
			a.cache.Store(v, cacheEntry{pools: pools, fetched: time.Now()})
			resultChan <- result{pools: pools}
		}(v, lister)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var all []venue.Pool
	for r := range resultChan {
		all = append(all, r.pools...)
	}
	return all, nil
}

func matchesPair(p venue.Pool, symA, symB string) bool {
	return (p.TokenA.Symbol == symA && p.TokenB.Symbol == symB) ||
		(p.TokenA.Symbol == symB && p.TokenB.Symbol == symA)
}

// dedupByPair keeps, for each unordered token-symbol pair, the pool with the
// highest APR.
func dedupByPair(pools []venue.Pool) []venue.Pool {
	best := make(map[string]venue.Pool, len(pools))
	for _, p := range pools {
		key := pairKey(p.TokenA.Symbol, p.TokenB.Symbol)
		existing, ok := best[key]
		if !ok || p.APR > existing.APR {
			best[key] = p
		}
	}
	out := make([]venue.Pool, 0, len(best))
	for _, p := range best {
		out = append(out, p)
	}
	return out
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "/" + b
}

func sortPools(pools []venue.Pool, field SortField) {
	switch field {
	case ByTVL:
		sort.Slice(pools, func(i, j int) bool { return pools[i].TVL.GT(pools[j].TVL) })
	case ByVolume:
		sort.Slice(pools, func(i, j int) bool { return pools[i].Volume24h.GT(pools[j].Volume24h) })
	case ByRiskAdjustedYield:
		sort.Slice(pools, func(i, j int) bool { return riskAdjustedYield(pools[i]) > riskAdjustedYield(pools[j]) })
	default:
		sort.Slice(pools, func(i, j int) bool { return pools[i].APR > pools[j].APR })
	}
}

func riskAdjustedYield(p venue.Pool) float64 {
	if p.RiskScore == 0 {
		return p.APR
	}
	return p.APR / float64(p.RiskScore)
}
