// Package swaprouter defines the external swap-routing boundary the
// pipeline composer calls for the non-LP leg of atomic-LP and
// withdraw-and-convert (SPEC_FULL.md §4.5), and the circuit breaker that
// protects it.
package swaprouter

import (
	"context"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

// Quote is a swap-routing service's priced quote for one leg.
type Quote struct {
	InMint      solana.PublicKey
	OutMint     solana.PublicKey
	InAmount    cosmath.Int
	OutAmount   cosmath.Int
	WorstCaseOut cosmath.Int
	SlippageBps int
	Raw         []byte // opaque route payload the service expects back on Swap
}

// Router is the external swap-routing service boundary.
type Router interface {
	Quote(ctx context.Context, inMint, outMint solana.PublicKey, amount cosmath.Int, slippageBps int) (Quote, error)
	Swap(ctx context.Context, quote Quote, owner solana.PublicKey) ([]solana.Instruction, error)
}
