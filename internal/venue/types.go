// Package venue defines the canonical, venue-agnostic data model (Pool,
// Position, Strategy, Range) and the Adapter interface that every
// concrete venue package (dlmm, whirlpool, clmm) implements. Selection
// among adapters is by the closed Venue tag, never by runtime type
// assertions on arbitrary objects — the redesign this spec calls for in
// place of the source's dynamic dispatch.
package venue

import (
	"context"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

// Venue is the closed sum type over every concentrated-liquidity venue the
// engine supports.
type Venue string

const (
	DLMM      Venue = "DLMM"
	WHIRLPOOL Venue = "WHIRLPOOL"
	CLMM      Venue = "CLMM"
)

// RangeShape selects how compute-range widens a position around the pool's
// current index.
type RangeShape string

const (
	Concentrated RangeShape = "CONCENTRATED"
	Wide         RangeShape = "WIDE"
	Custom       RangeShape = "CUSTOM"
)

// DistributionShape names how DLMM liquidity is spread across bins in a
// range. No adapter reads it: the DLMM adapter always deposits a single
// spot-weighted range, and tick-based venues ignore it.
type DistributionShape string

const (
	Spot  DistributionShape = "SPOT"
	Curve DistributionShape = "CURVE"
	Bidask DistributionShape = "BIDASK"
)

// TipUrgency drives both the priority-fee percentile (C4) and the tip
// amount schedule (C5).
type TipUrgency string

const (
	Fast  TipUrgency = "FAST"
	Turbo TipUrgency = "TURBO"
	Skip  TipUrgency = "SKIP"
)

// Token describes one side of a pool's pair.
type Token struct {
	Mint     solana.PublicKey
	Symbol   string
	Decimals uint8
}

// Pool is the canonical cross-venue pool representation (spec §3). Exactly
// one of BinStep/TickSpacing is non-zero, matching the venue.
type Pool struct {
	Address    solana.PublicKey
	Venue      Venue
	TokenA     Token
	TokenB     Token
	Price      float64
	BinStep    int32 // DLMM granularity, basis points
	TickSpacing int32 // WHIRLPOOL/CLMM granularity
	ActiveIndex int32 // active bin id (DLMM) or current tick (tick venues)
	TVL        cosmath.LegacyDec
	Volume24h  cosmath.LegacyDec
	APR        float64 // annualized, as reported by the venue's public index; 0 when unknown
	FeeBps     int32
	RiskScore  int
}

// Granularity returns the pool's single granularity unit, whichever of
// BinStep/TickSpacing is set, so range math can stay venue-agnostic.
func (p Pool) Granularity() int32 {
	if p.Venue == DLMM {
		return p.BinStep
	}
	return p.TickSpacing
}

// Range is a lower/upper pair of venue-native indices (bin ids or ticks).
type Range struct {
	Lower int32
	Upper int32
}

// Amounts is a two-sided token amount pair, always keyed A/B to match
// Pool.TokenA/TokenB ordering.
type Amounts struct {
	A cosmath.Int
	B cosmath.Int
}

// LiquidityQuote is the result of quote-liquidity (spec §4.1).
type LiquidityQuote struct {
	Liquidity  cosmath.Int
	ExpectedA  cosmath.Int
	ExpectedB  cosmath.Int
	WorstCaseA cosmath.Int
	WorstCaseB cosmath.Int
}

// Position is a user's concentrated-liquidity claim (spec §3).
type Position struct {
	ID            string // PDA address (DLMM) or position-NFT mint (tick venues)
	Venue         Venue
	Owner         solana.PublicKey
	Pool          solana.PublicKey
	Range         Range
	PriceLower    float64
	PriceUpper    float64
	Liquidity     cosmath.Int
	DepositedA    cosmath.Int
	DepositedB    cosmath.Int
	FeesOwedA     cosmath.Int
	FeesOwedB     cosmath.Int
	InRange       bool
}

// Strategy is a pre-execution intent (spec §3).
type Strategy struct {
	Venue           Venue
	Pool            solana.PublicKey
	CollateralMint  solana.PublicKey
	CollateralAmount cosmath.Int
	RangeShape      RangeShape
	CustomRange     *Range
	Distribution    DistributionShape
	SlippageBps     int
	Urgency         TipUrgency
	// VanityPrefix, when set, asks BuildOpen to search for a fresh
	// position-account keypair whose base58 address starts with this
	// prefix rather than using an arbitrary one.
	VanityPrefix string
}

// Instruction bundles a single unsigned instruction; InstructionPlan is the
// ordered output of every build-* adapter operation, plus any fresh
// keypairs those instructions require (e.g. a new position account) that
// must be co-signed alongside the wallet owner.
type InstructionPlan struct {
	Instructions []solana.Instruction
	Signers      []solana.PrivateKey
}

// Adapter is the operation set every venue implements (spec §4.1).
type Adapter interface {
	Venue() Venue
	DescribePool(ctx context.Context, addr solana.PublicKey) (*Pool, error)
	ComputeRange(ctx context.Context, pool *Pool, shape RangeShape, custom *Range) (Range, error)
	QuoteLiquidity(ctx context.Context, pool *Pool, rng Range, in Amounts, slippageBps int) (LiquidityQuote, error)
	BuildOpen(ctx context.Context, pool *Pool, rng Range, amounts Amounts, owner solana.PublicKey, dist DistributionShape, vanityPrefix string) (InstructionPlan, error)
	BuildDecrease(ctx context.Context, pos *Position, bps int, closeIfFull bool) (InstructionPlan, error)
	BuildCollectFees(ctx context.Context, pos *Position) (InstructionPlan, error)
	EnumeratePositions(ctx context.Context, wallet solana.PublicKey) ([]Position, error)
}

// Lister fetches a venue's public pool index, the fan-out source for
// internal/aggregator. Distinct from Adapter.DescribePool, which decodes a
// single known on-chain address: Lister hits each venue's off-chain REST
// index to discover pools and their APR, a figure not derivable from
// on-chain account state alone.
type Lister interface {
	ListPools(ctx context.Context) ([]Pool, error)
}

// Registry is a venue-tag-keyed adapter lookup, built once at startup.
type Registry map[Venue]Adapter

func (r Registry) Get(v Venue) (Adapter, bool) {
	a, ok := r[v]
	return a, ok
}
