// Package whirlpool wires pkg/pool/whirlpool's account decoding and
// instruction builders into the venue.Adapter contract, following the same
// describe/compute-range/quote/build shape as internal/venue/dlmm and
// internal/venue/clmm.
package whirlpool

import (
	"context"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/venue"
	poolwp "github.com/solana-zh/lp-engine/pkg/pool/whirlpool"
	"github.com/solana-zh/lp-engine/pkg/sol"
	"github.com/solana-zh/lp-engine/pkg/tickmath"
)

type Adapter struct {
	client *sol.Client
}

func New(client *sol.Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) Venue() venue.Venue { return venue.WHIRLPOOL }

func (a *Adapter) DescribePool(ctx context.Context, addr solana.PublicKey) (*venue.Pool, error) {
	info, err := a.client.GetAccountInfoWithOpts(ctx, addr)
	if err != nil {
		return nil, errs.Wrap(errs.VenueUnavailable, "fetch whirlpool account", err)
	}
	if info == nil || info.Value == nil {
		return nil, errs.New(errs.NotFound, fmt.Sprintf("no whirlpool at %s", addr))
	}

	pool := &poolwp.WhirlpoolPool{}
	if err := pool.Decode(info.Value.Data.GetBinary()); err != nil {
		return nil, errs.Wrap(errs.Internal, "decode whirlpool account", err)
	}
	pool.PoolId = addr

	decimalsA, err := venue.MintDecimals(ctx, a.client, pool.TokenMintA)
	if err != nil {
		return nil, err
	}
	decimalsB, err := venue.MintDecimals(ctx, a.client, pool.TokenMintB)
	if err != nil {
		return nil, err
	}

	sqrtPriceX64 := cosmath.NewIntFromBigInt(pool.SqrtPrice.Big())
	rawPrice := tickmath.PriceFromSqrtPriceX64(sqrtPriceX64)
	decimalAdjust := pow10(int(decimalsA)) / pow10(int(decimalsB))

	return &venue.Pool{
		Address:     addr,
		Venue:       venue.WHIRLPOOL,
		TokenA:      venue.Token{Mint: pool.TokenMintA, Decimals: decimalsA},
		TokenB:      venue.Token{Mint: pool.TokenMintB, Decimals: decimalsB},
		Price:       rawPrice * decimalAdjust,
		TickSpacing: int32(pool.TickSpacing),
		ActiveIndex: pool.TickCurrentIndex,
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

	worstA := applySlippage(expectedA, slippageBps)
	worstB := applySlippage(expectedB, slippageBps)

	return venue.LiquidityQuote{
		Liquidity:  liquidity,
		ExpectedA:  expectedA,
		ExpectedB:  expectedB,
		WorstCaseA: worstA,
		WorstCaseB: worstB,
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

	openIxs, err := onchain.BuildOpenPosition(ctx, poolwp.OpenPositionParams{
		Owner:        owner,
		PositionMint: positionMint.PublicKey(),
		TickLower:    rng.Lower,
		TickUpper:    rng.Upper,
	})
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "build open position", err)
	}

	quote, err := a.QuoteLiquidity(ctx, pool, rng, amounts, 0)
	if err != nil {
		return venue.InstructionPlan{}, err
	}

	ownerATAa, _, err := solana.FindAssociatedTokenAddress(owner, pool.TokenA.Mint)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata a", err)
	}
	ownerATAb, _, err := solana.FindAssociatedTokenAddress(owner, pool.TokenB.Mint)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata b", err)
	}

	increaseIxs, err := onchain.BuildIncreaseLiquidity(ctx, poolwp.IncreaseLiquidityParams{
		Owner:              owner,
		PositionMint:       positionMint.PublicKey(),
		TickLower:          rng.Lower,
		TickUpper:          rng.Upper,
		LiquidityAmount:    quote.Liquidity,
		TokenMaxA:          amounts.A,
		TokenMaxB:          amounts.B,
		OwnerTokenAccountA: ownerATAa,
		OwnerTokenAccountB: ownerATAb,
	})
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "build increase liquidity", err)
	}

	return venue.InstructionPlan{
		Instructions: append(openIxs, increaseIxs...),
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

	ownerATAa, _, err := solana.FindAssociatedTokenAddress(pos.Owner, onchain.TokenMintA)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata a", err)
	}
	ownerATAb, _, err := solana.FindAssociatedTokenAddress(pos.Owner, onchain.TokenMintB)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata b", err)
	}

	ixs, err := onchain.BuildDecreaseLiquidity(ctx, poolwp.DecreaseLiquidityParams{
		Owner:              pos.Owner,
		PositionMint:       positionMint,
		TickLower:          pos.Range.Lower,
		TickUpper:          pos.Range.Upper,
		LiquidityAmount:    liquidity,
		TokenMinA:          cosmath.ZeroInt(),
		TokenMinB:          cosmath.ZeroInt(),
		OwnerTokenAccountA: ownerATAa,
		OwnerTokenAccountB: ownerATAb,
	})
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "build decrease liquidity", err)
	}

	feeIxs, err := onchain.BuildCollectFees(ctx, poolwp.CollectFeesParams{
		Owner:              pos.Owner,
		PositionMint:       positionMint,
		OwnerTokenAccountA: ownerATAa,
		OwnerTokenAccountB: ownerATAb,
	})
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "build collect fees", err)
	}
	ixs = append(ixs, feeIxs...)

	if bps == 10_000 && closeIfFull {
		closeIxs, err := onchain.BuildClosePosition(ctx, pos.Owner, positionMint, pos.Owner)
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
	ownerATAa, _, err := solana.FindAssociatedTokenAddress(pos.Owner, onchain.TokenMintA)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata a", err)
	}
	ownerATAb, _, err := solana.FindAssociatedTokenAddress(pos.Owner, onchain.TokenMintB)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata b", err)
	}
	ixs, err := onchain.BuildCollectFees(ctx, poolwp.CollectFeesParams{
		Owner:              pos.Owner,
		PositionMint:       positionMint,
		OwnerTokenAccountA: ownerATAa,
		OwnerTokenAccountB: ownerATAb,
	})
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "build collect fees", err)
	}
	return venue.InstructionPlan{Instructions: ixs}, nil
}

// EnumeratePositions scans the wallet's SPL token accounts for balance-1,
// decimals-0 mints — the signature of a Whirlpool position NFT — derives
// each candidate's position PDA, and decodes whichever ones turn out to
// belong to the Whirlpool program. Orca does not index positions by owner
// on-chain, so this wallet-side scan is the only enumeration path
// available.
func (a *Adapter) EnumeratePositions(ctx context.Context, wallet solana.PublicKey) ([]venue.Position, error) {
	mints, err := venue.ScanPositionNFTMints(ctx, a.client, wallet)
	if err != nil {
		return nil, err
	}

	var positions []venue.Position
	for _, mint := range mints {
		positionPDA, _, err := poolwp.DerivePositionPDA(mint)
		if err != nil {
			continue
		}
		info, err := a.client.GetAccountInfoWithOpts(ctx, positionPDA)
		if err != nil || info == nil || info.Value == nil {
			continue
		}
		if !info.Value.Owner.Equals(poolwp.WhirlpoolProgramID) {
			continue
		}

		acct := &poolwp.PositionAccount{}
		if err := acct.Decode(info.Value.Data.GetBinary()); err != nil {
			continue
		}

		pool, err := a.DescribePool(ctx, acct.Whirlpool)
		if err != nil {
			continue
		}

		priceLower := tickmath.PriceFromSqrtPriceX64(tickmath.SqrtPriceX64FromTick(acct.TickLowerIndex))
		priceUpper := tickmath.PriceFromSqrtPriceX64(tickmath.SqrtPriceX64FromTick(acct.TickUpperIndex))
		decimalAdjust := pow10(int(pool.TokenA.Decimals)) / pow10(int(pool.TokenB.Decimals))

		positions = append(positions, venue.Position{
			ID:        mint.String(),
			Venue:     venue.WHIRLPOOL,
			Owner:     wallet,
			Pool:      acct.Whirlpool,
			Range:     venue.Range{Lower: acct.TickLowerIndex, Upper: acct.TickUpperIndex},
			PriceLower: priceLower * decimalAdjust,
			PriceUpper: priceUpper * decimalAdjust,
			Liquidity: cosmath.NewIntFromBigInt(acct.Liquidity.Big()),
			FeesOwedA: cosmath.NewIntFromUint64(acct.FeeOwedA),
			FeesOwedB: cosmath.NewIntFromUint64(acct.FeeOwedB),
			InRange:   acct.TickLowerIndex <= pool.ActiveIndex && pool.ActiveIndex < acct.TickUpperIndex,
		})
	}
	return positions, nil
}

func (a *Adapter) fetchOnchainPool(ctx context.Context, addr solana.PublicKey) (*poolwp.WhirlpoolPool, error) {
	info, err := a.client.GetAccountInfoWithOpts(ctx, addr)
	if err != nil {
		return nil, errs.Wrap(errs.VenueUnavailable, "fetch whirlpool account", err)
	}
	if info == nil || info.Value == nil {
		return nil, errs.New(errs.NotFound, fmt.Sprintf("no whirlpool at %s", addr))
	}
	pool := &poolwp.WhirlpoolPool{}
	if err := pool.Decode(info.Value.Data.GetBinary()); err != nil {
		return nil, errs.Wrap(errs.Internal, "decode whirlpool account", err)
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
