// Package clmm wires pkg/pool/raydium's CLMM account decoding and
// instruction builders into the venue.Adapter contract, following the same
// describe/compute-range/quote/build shape as internal/venue/whirlpool and
// internal/venue/dlmm.
package clmm

import (
	"context"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/venue"
	poolray "github.com/solana-zh/lp-engine/pkg/pool/raydium"
	"github.com/solana-zh/lp-engine/pkg/sol"
	"github.com/solana-zh/lp-engine/pkg/tickmath"
)

type Adapter struct {
	client *sol.Client
}

func New(client *sol.Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) Venue() venue.Venue { return venue.CLMM }

func (a *Adapter) DescribePool(ctx context.Context, addr solana.PublicKey) (*venue.Pool, error) {
	pool, err := a.fetchOnchainPool(ctx, addr)
	if err != nil {
		return nil, err
	}

	sqrtPriceX64 := cosmath.NewIntFromBigInt(pool.SqrtPriceX64.Big())
	rawPrice := tickmath.PriceFromSqrtPriceX64(sqrtPriceX64)
	decimalAdjust := pow10(int(pool.MintDecimals0)) / pow10(int(pool.MintDecimals1))

	return &venue.Pool{
		Address:     addr,
		Venue:       venue.CLMM,
		TokenA:      venue.Token{Mint: pool.TokenMint0, Decimals: pool.MintDecimals0},
		TokenB:      venue.Token{Mint: pool.TokenMint1, Decimals: pool.MintDecimals1},
		Price:       rawPrice * decimalAdjust,
		TickSpacing: int32(pool.TickSpacing),
		ActiveIndex: pool.TickCurrent,
		FeeBps:      int32(pool.FeeRate) / 100,
	}, nil
}

func (a *Adapter) ComputeRange(ctx context.Context, pool *venue.Pool, shape venue.RangeShape, custom *venue.Range) (venue.Range, error) {
	if shape == venue.Custom {
		if custom == nil {
			return venue.Range{}, errs.New(errs.Validation, "custom range shape requires a range")
		}
		if err := venue.ValidateCustomRange(*custom, pool.TickSpacing); err != nil {
			return venue.Range{}, err
		}
		return *custom, nil
	}
	return venue.SnapTickRange(pool.ActiveIndex, pool.TickSpacing, shape), nil
}

func (a *Adapter) QuoteLiquidity(ctx context.Context, pool *venue.Pool, rng venue.Range, in venue.Amounts, slippageBps int) (venue.LiquidityQuote, error) {
	sqrtCurrent := tickmath.SqrtPriceX64FromTick(pool.ActiveIndex)
	sqrtLower := tickmath.SqrtPriceX64FromTick(rng.Lower)
	sqrtUpper := tickmath.SqrtPriceX64FromTick(rng.Upper)

	liqFromA := tickmath.LiquidityFromAmounts(in.A, cosmath.ZeroInt(), sqrtCurrent, sqrtLower, sqrtUpper)
	liqFromB := tickmath.LiquidityFromAmounts(cosmath.ZeroInt(), in.B, sqrtCurrent, sqrtLower, sqrtUpper)
	liquidity := liqFromA
	if !liqFromB.IsZero() && (liquidity.IsZero() || liqFromB.LT(liquidity)) {
		liquidity = liqFromB
	}

	expectedA, expectedB := tickmath.AmountsFromLiquidity(liquidity, sqrtCurrent, sqrtLower, sqrtUpper)

	return venue.LiquidityQuote{
		Liquidity:  liquidity,
		ExpectedA:  expectedA,
		ExpectedB:  expectedB,
		WorstCaseA: applySlippage(expectedA, slippageBps),
		WorstCaseB: applySlippage(expectedB, slippageBps),
	}, nil
}

func (a *Adapter) BuildOpen(ctx context.Context, pool *venue.Pool, rng venue.Range, amounts venue.Amounts, owner solana.PublicKey, dist venue.DistributionShape, vanityPrefix string) (venue.InstructionPlan, error) {
	onchain, err := a.fetchOnchainPool(ctx, pool.Address)
	if err != nil {
		return venue.InstructionPlan{}, err
	}

	positionMint, err := venue.NewPositionKeypair(vanityPrefix)
	if err != nil {
		return venue.InstructionPlan{}, err
	}

	quote, err := a.QuoteLiquidity(ctx, pool, rng, amounts, 0)
	if err != nil {
		return venue.InstructionPlan{}, err
	}

	ownerATA0, _, err := solana.FindAssociatedTokenAddress(owner, pool.TokenA.Mint)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata 0", err)
	}
	ownerATA1, _, err := solana.FindAssociatedTokenAddress(owner, pool.TokenB.Mint)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata 1", err)
	}

	openIxs, err := onchain.BuildOpenPosition(ctx, poolray.OpenPositionParams{
		Owner:              owner,
		PositionNftMint:    positionMint.PublicKey(),
		TickLower:          rng.Lower,
		TickUpper:          rng.Upper,
		LiquidityAmount:    quote.Liquidity,
		AmountMax0:         amounts.A,
		AmountMax1:         amounts.B,
		OwnerTokenAccount0: ownerATA0,
		OwnerTokenAccount1: ownerATA1,
	})
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "build open position", err)
	}

	return venue.InstructionPlan{
		Instructions: openIxs,
		Signers:      []solana.PrivateKey{positionMint},
	}, nil
}

func (a *Adapter) BuildDecrease(ctx context.Context, pos *venue.Position, bps int, closeIfFull bool) (venue.InstructionPlan, error) {
	onchain, err := a.fetchOnchainPool(ctx, pos.Pool)
	if err != nil {
		return venue.InstructionPlan{}, err
	}

	positionMint, err := solana.PublicKeyFromBase58(pos.ID)
	if err != nil {
		return venue.InstructionPlan{}, errs.New(errs.Validation, "invalid position mint")
	}

	liquidity := pos.Liquidity.MulRaw(int64(bps)).QuoRaw(10_000)

	ownerATA0, _, err := solana.FindAssociatedTokenAddress(pos.Owner, onchain.TokenMint0)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata 0", err)
	}
	ownerATA1, _, err := solana.FindAssociatedTokenAddress(pos.Owner, onchain.TokenMint1)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata 1", err)
	}

	ixs, err := onchain.BuildDecreaseLiquidity(ctx, poolray.DecreaseLiquidityParams{
		Owner:              pos.Owner,
		PositionNftMint:    positionMint,
		TickLower:          pos.Range.Lower,
		TickUpper:          pos.Range.Upper,
		LiquidityAmount:    liquidity,
		AmountMin0:         cosmath.ZeroInt(),
		AmountMin1:         cosmath.ZeroInt(),
		OwnerTokenAccount0: ownerATA0,
		OwnerTokenAccount1: ownerATA1,
	})
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "build decrease liquidity", err)
	}

	if bps == 10_000 && closeIfFull {
		closeIxs, err := onchain.BuildClosePosition(ctx, pos.Owner, positionMint, pos.Range.Lower, pos.Range.Upper)
		if err != nil {
			return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "build close position", err)
		}
		ixs = append(ixs, closeIxs...)
	}

	return venue.InstructionPlan{Instructions: ixs}, nil
}

func (a *Adapter) BuildCollectFees(ctx context.Context, pos *venue.Position) (venue.InstructionPlan, error) {
	onchain, err := a.fetchOnchainPool(ctx, pos.Pool)
	if err != nil {
		return venue.InstructionPlan{}, err
	}
	positionMint, err := solana.PublicKeyFromBase58(pos.ID)
	if err != nil {
		return venue.InstructionPlan{}, errs.New(errs.Validation, "invalid position mint")
	}
	ownerATA0, _, err := solana.FindAssociatedTokenAddress(pos.Owner, onchain.TokenMint0)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata 0", err)
	}
	ownerATA1, _, err := solana.FindAssociatedTokenAddress(pos.Owner, onchain.TokenMint1)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata 1", err)
	}
	ixs, err := onchain.BuildCollectFees(ctx, poolray.CollectFeesParams{
		Owner:              pos.Owner,
		PositionNftMint:    positionMint,
		TickLower:          pos.Range.Lower,
		TickUpper:          pos.Range.Upper,
		OwnerTokenAccount0: ownerATA0,
		OwnerTokenAccount1: ownerATA1,
	})
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "build collect fees", err)
	}
	return venue.InstructionPlan{Instructions: ixs}, nil
}

// EnumeratePositions scans the wallet's token accounts for balance-1,
// decimals-0 mints, derives each candidate's PersonalPositionState PDA, and
// decodes whichever belong to the Raydium CLMM program. Same NFT-ownership
// signature as Whirlpool; Raydium has no owner-indexed position list
// on-chain either.
func (a *Adapter) EnumeratePositions(ctx context.Context, wallet solana.PublicKey) ([]venue.Position, error) {
	mints, err := venue.ScanPositionNFTMints(ctx, a.client, wallet)
	if err != nil {
		return nil, err
	}

	var positions []venue.Position
	for _, mint := range mints {
		personalPosition, _, err := poolray.DerivePersonalPositionPDA(mint)
		if err != nil {
			continue
		}
		info, err := a.client.GetAccountInfoWithOpts(ctx, personalPosition)
		if err != nil || info == nil || info.Value == nil {
			continue
		}
		if !info.Value.Owner.Equals(poolray.RAYDIUM_CLMM_PROGRAM_ID) {
			continue
		}

		acct := &poolray.PersonalPositionAccount{}
		if err := acct.Decode(info.Value.Data.GetBinary()); err != nil {
			continue
		}

		pool, err := a.DescribePool(ctx, acct.PoolId)
		if err != nil {
			continue
		}

		priceLower := tickmath.PriceFromSqrtPriceX64(tickmath.SqrtPriceX64FromTick(acct.TickLowerIndex))
		priceUpper := tickmath.PriceFromSqrtPriceX64(tickmath.SqrtPriceX64FromTick(acct.TickUpperIndex))
		decimalAdjust := pow10(int(pool.TokenA.Decimals)) / pow10(int(pool.TokenB.Decimals))

		positions = append(positions, venue.Position{
			ID:         mint.String(),
			Venue:      venue.CLMM,
			Owner:      wallet,
			Pool:       acct.PoolId,
			Range:      venue.Range{Lower: acct.TickLowerIndex, Upper: acct.TickUpperIndex},
			PriceLower: priceLower * decimalAdjust,
			PriceUpper: priceUpper * decimalAdjust,
			Liquidity:  cosmath.NewIntFromBigInt(acct.Liquidity.Big()),
			FeesOwedA:  cosmath.NewIntFromUint64(acct.TokenFeesOwed0),
			FeesOwedB:  cosmath.NewIntFromUint64(acct.TokenFeesOwed1),
			InRange:    acct.TickLowerIndex <= pool.ActiveIndex && pool.ActiveIndex < acct.TickUpperIndex,
		})
	}
	return positions, nil
}

func (a *Adapter) fetchOnchainPool(ctx context.Context, addr solana.PublicKey) (*poolray.CLMMPool, error) {
	info, err := a.client.GetAccountInfoWithOpts(ctx, addr)
	if err != nil {
		return nil, errs.Wrap(errs.VenueUnavailable, "fetch clmm account", err)
	}
	if info == nil || info.Value == nil {
		return nil, errs.New(errs.NotFound, fmt.Sprintf("no clmm pool at %s", addr))
	}
	if err := venue.ClassifyUnsupportedOwner(info.Value.Owner); err != nil {
		return nil, err
	}
	pool := &poolray.CLMMPool{}
	if err := pool.Decode(info.Value.Data.GetBinary()); err != nil {
		return nil, errs.Wrap(errs.Internal, "decode clmm account", err)
	}
	pool.PoolId = addr
	return pool, nil
}

func applySlippage(amount cosmath.Int, slippageBps int) cosmath.Int {
	return amount.MulRaw(int64(10_000 - slippageBps)).QuoRaw(10_000)
}

func pow10(n int) float64 {
	v := 1.0
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}
