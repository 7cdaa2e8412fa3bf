package swaprouter

import (
	"context"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/errs"
)

// BreakerRouter wraps a Router with the circuit breaker, so pipeline code
// calls it exactly like any other Router and never touches Breaker
// directly.
type BreakerRouter struct {
	inner   Router
	breaker *Breaker
}

func NewBreakerRouter(inner Router) *BreakerRouter {
	return &BreakerRouter{inner: inner, breaker: NewBreaker()}
}

func (r *BreakerRouter) Quote(ctx context.Context, inMint, outMint solana.PublicKey, amount cosmath.Int, slippageBps int) (Quote, error) {
	if !r.breaker.Allow() {
		return Quote{}, errs.New(errs.VenueUnavailable, "swap router circuit open")
	}
	q, err := r.inner.Quote(ctx, inMint, outMint, amount, slippageBps)
	if err != nil {
		r.breaker.RecordFailure()
		return Quote{}, err
	}
	r.breaker.RecordSuccess()
	return q, nil
}

func (r *BreakerRouter) Swap(ctx context.Context, quote Quote, owner solana.PublicKey) ([]solana.Instruction, error) {
	if !r.breaker.Allow() {
		return nil, errs.New(errs.VenueUnavailable, "swap router circuit open")
	}
	ixs, err := r.inner.Swap(ctx, quote, owner)
	if err != nil {
		r.breaker.RecordFailure()
		return nil, err
	}
	r.breaker.RecordSuccess()
	return ixs, nil
}
