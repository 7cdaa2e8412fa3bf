// Package dlmm wires pkg/pool/meteora's account decoding and instruction
// builders into the venue.Adapter contract, following the same
// describe/compute-range/quote/build shape as internal/venue/whirlpool and
// internal/venue/clmm.
package dlmm

import (
	"context"
	"fmt"
	"math"
	"math/big"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/venue"
	poolmeteora "github.com/solana-zh/lp-engine/pkg/pool/meteora"
	"github.com/solana-zh/lp-engine/pkg/sol"
	"github.com/solana-zh/lp-engine/pkg/tickmath"
)

type Adapter struct {
	client *sol.Client
}

func New(client *sol.Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) Venue() venue.Venue { return venue.DLMM }

func (a *Adapter) DescribePool(ctx context.Context, addr solana.PublicKey) (*venue.Pool, error) {
	onchain, err := a.fetchOnchainPool(ctx, addr)
	if err != nil {
		return nil, err
	}

	mintX, mintY := onchain.TokenMints()
	decimalsA, err := venue.MintDecimals(ctx, a.client, mintX)
	if err != nil {
		return nil, err
	}
	decimalsB, err := venue.MintDecimals(ctx, a.client, mintY)
	if err != nil {
		return nil, err
	}

	binStep := onchain.BinStep()
	sqrtPriceX64 := sqrtPriceX64FromBinID(onchain.ActiveBinID(), binStep)
	rawPrice := tickmath.PriceFromSqrtPriceX64(sqrtPriceX64)
	decimalAdjust := pow10(int(decimalsA)) / pow10(int(decimalsB))

	feeBps := int32(0)
	if totalFee, err := onchain.GetTotalFee(); err == nil && totalFee != nil {
		feeBps = int32(new(big.Int).Div(new(big.Int).Mul(totalFee, big.NewInt(10_000)), big.NewInt(poolmeteora.FeePrecision)).Int64())
	}

	return &venue.Pool{
		Address:     addr,
		Venue:       venue.DLMM,
		TokenA:      venue.Token{Mint: mintX, Decimals: decimalsA},
		TokenB:      venue.Token{Mint: mintY, Decimals: decimalsB},
		Price:       rawPrice * decimalAdjust,
		BinStep:     int32(binStep),
		ActiveIndex: onchain.ActiveBinID(),
		FeeBps:      feeBps,
	}, nil
}

func (a *Adapter) ComputeRange(ctx context.Context, pool *venue.Pool, shape venue.RangeShape, custom *venue.Range) (venue.Range, error) {
	onchain, err := a.fetchOnchainPool(ctx, pool.Address)
	if err != nil {
		return venue.Range{}, err
	}
	minBin, maxBin := onchain.BinIDBounds()

	if shape == venue.Custom {
		if custom == nil {
			return venue.Range{}, errs.New(errs.Validation, "custom range shape requires a range")
		}
		if err := venue.ValidateCustomRange(*custom, pool.BinStep); err != nil {
			return venue.Range{}, err
		}
		return *custom, nil
	}
	return venue.SnapBinRange(pool.ActiveIndex, pool.BinStep, shape, minBin, maxBin), nil
}

func (a *Adapter) QuoteLiquidity(ctx context.Context, pool *venue.Pool, rng venue.Range, in venue.Amounts, slippageBps int) (venue.LiquidityQuote, error) {
	binStep := uint16(pool.BinStep)
	sqrtCurrent := sqrtPriceX64FromBinID(pool.ActiveIndex, binStep)
	sqrtLower := sqrtPriceX64FromBinID(rng.Lower, binStep)
	sqrtUpper := sqrtPriceX64FromBinID(rng.Upper, binStep)

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

	base, err := venue.NewPositionKeypair(vanityPrefix)
	if err != nil {
		return venue.InstructionPlan{}, err
	}

	openIxs, err := onchain.BuildOpenPosition(ctx, poolmeteora.OpenPositionParams{
		Owner:      owner,
		Base:       base.PublicKey(),
		LowerBinID: rng.Lower,
		Width:      rng.Upper - rng.Lower,
	})
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "build open position", err)
	}

	position, _, err := poolmeteora.DerivePositionPDA(pool.Address, base.PublicKey())
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive position pda", err)
	}

	ownerATAx, _, err := solana.FindAssociatedTokenAddress(owner, pool.TokenA.Mint)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata x", err)
	}
	ownerATAy, _, err := solana.FindAssociatedTokenAddress(owner, pool.TokenB.Mint)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata y", err)
	}

	addIxs, err := onchain.BuildAddLiquidity(ctx, poolmeteora.AddLiquidityParams{
		Owner:      owner,
		Position:   position,
		LowerBinID: rng.Lower,
		UpperBinID: rng.Upper,
		AmountX:    amounts.A,
		AmountY:    amounts.B,
		UserTokenX: ownerATAx,
		UserTokenY: ownerATAy,
	})
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "build add liquidity", err)
	}

	return venue.InstructionPlan{
		Instructions: append(openIxs, addIxs...),
		Signers:      []solana.PrivateKey{base},
	}, nil
}

func (a *Adapter) BuildDecrease(ctx context.Context, pos *venue.Position, bps int, closeIfFull bool) (venue.InstructionPlan, error) {
	onchain, err := a.fetchOnchainPool(ctx, pos.Pool)
	if err != nil {
		return venue.InstructionPlan{}, err
	}

	position, err := solana.PublicKeyFromBase58(pos.ID)
	if err != nil {
		return venue.InstructionPlan{}, errs.New(errs.Validation, "invalid position address")
	}

	mintX, mintY := onchain.TokenMints()
	ownerATAx, _, err := solana.FindAssociatedTokenAddress(pos.Owner, mintX)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata x", err)
	}
	ownerATAy, _, err := solana.FindAssociatedTokenAddress(pos.Owner, mintY)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata y", err)
	}

	ixs, err := onchain.BuildRemoveLiquidity(ctx, poolmeteora.RemoveLiquidityParams{
		Owner:       pos.Owner,
		Position:    position,
		LowerBinID:  pos.Range.Lower,
		UpperBinID:  pos.Range.Upper,
		BpsToRemove: uint16(bps),
		UserTokenX:  ownerATAx,
		UserTokenY:  ownerATAy,
	})
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "build remove liquidity", err)
	}

	feeIxs, err := onchain.BuildClaimFee(ctx, poolmeteora.ClaimFeeParams{
		Owner:      pos.Owner,
		Position:   position,
		LowerBinID: pos.Range.Lower,
		UpperBinID: pos.Range.Upper,
		UserTokenX: ownerATAx,
		UserTokenY: ownerATAy,
	})
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "build claim fee", err)
	}
	ixs = append(ixs, feeIxs...)

	// closeIfFull has no dedicated close-position instruction to append:
	// DLMM position accounts are rent-reclaimed automatically once their
	// last bin reaches zero liquidity, unlike Whirlpool/CLMM's explicit
	// close instruction.
	_ = closeIfFull

	return venue.InstructionPlan{Instructions: ixs}, nil
}

func (a *Adapter) BuildCollectFees(ctx context.Context, pos *venue.Position) (venue.InstructionPlan, error) {
	onchain, err := a.fetchOnchainPool(ctx, pos.Pool)
	if err != nil {
		return venue.InstructionPlan{}, err
	}
	position, err := solana.PublicKeyFromBase58(pos.ID)
	if err != nil {
		return venue.InstructionPlan{}, errs.New(errs.Validation, "invalid position address")
	}
	mintX, mintY := onchain.TokenMints()
	ownerATAx, _, err := solana.FindAssociatedTokenAddress(pos.Owner, mintX)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata x", err)
	}
	ownerATAy, _, err := solana.FindAssociatedTokenAddress(pos.Owner, mintY)
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "derive owner ata y", err)
	}
	ixs, err := onchain.BuildClaimFee(ctx, poolmeteora.ClaimFeeParams{
		Owner:      pos.Owner,
		Position:   position,
		LowerBinID: pos.Range.Lower,
		UpperBinID: pos.Range.Upper,
		UserTokenX: ownerATAx,
		UserTokenY: ownerATAy,
	})
	if err != nil {
		return venue.InstructionPlan{}, errs.Wrap(errs.Internal, "build claim fee", err)
	}
	return venue.InstructionPlan{Instructions: ixs}, nil
}

// positionOwnerOffset is the byte offset of the Owner field in a DLMM
// PositionV2 account: discriminator(8) + lbPair(32).
const positionOwnerOffset = 40

// EnumeratePositions scans every PositionV2 account owned by wallet via a
// memcmp filter on the Owner field, since DLMM positions are base-key PDAs
// rather than NFTs and carry no wallet-side token signature to scan for
// instead.
func (a *Adapter) EnumeratePositions(ctx context.Context, wallet solana.PublicKey) ([]venue.Position, error) {
	result, err := a.client.GetProgramAccountsWithOpts(ctx, poolmeteora.MeteoraProgramID, &rpc.GetProgramAccountsOpts{
		Filters: []rpc.RPCFilter{
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: positionOwnerOffset,
					Bytes:  wallet.Bytes(),
				},
			},
		},
	})
	if err != nil {
		return nil, errs.Wrap(errs.RPCUnavailable, "scan dlmm positions by owner", err)
	}

	var positions []venue.Position
	for _, keyedAccount := range result {
		acct := &poolmeteora.PositionAccount{}
		if err := acct.Decode(keyedAccount.Account.Data.GetBinary()); err != nil {
			continue
		}

		pool, err := a.DescribePool(ctx, acct.LbPair)
		if err != nil {
			continue
		}

		binStep := uint16(pool.BinStep)
		priceLower := tickmath.PriceFromSqrtPriceX64(sqrtPriceX64FromBinID(acct.LowerBinID, binStep))
		priceUpper := tickmath.PriceFromSqrtPriceX64(sqrtPriceX64FromBinID(acct.UpperBinID, binStep))
		decimalAdjust := pow10(int(pool.TokenA.Decimals)) / pow10(int(pool.TokenB.Decimals))

		positions = append(positions, venue.Position{
			ID:         keyedAccount.Pubkey.String(),
			Venue:      venue.DLMM,
			Owner:      wallet,
			Pool:       acct.LbPair,
			Range:      venue.Range{Lower: acct.LowerBinID, Upper: acct.UpperBinID},
			PriceLower: priceLower * decimalAdjust,
			PriceUpper: priceUpper * decimalAdjust,
			FeesOwedA:  cosmath.NewIntFromUint64(acct.FeeOwedX),
			FeesOwedB:  cosmath.NewIntFromUint64(acct.FeeOwedY),
			InRange:    acct.LowerBinID <= pool.ActiveIndex && pool.ActiveIndex <= acct.UpperBinID,
		})
	}
	return positions, nil
}

func (a *Adapter) fetchOnchainPool(ctx context.Context, addr solana.PublicKey) (*poolmeteora.MeteoraDlmmPool, error) {
	info, err := a.client.GetAccountInfoWithOpts(ctx, addr)
	if err != nil {
		return nil, errs.Wrap(errs.VenueUnavailable, "fetch dlmm account", err)
	}
	if info == nil || info.Value == nil {
		return nil, errs.New(errs.NotFound, fmt.Sprintf("no dlmm pool at %s", addr))
	}
	pool := &poolmeteora.MeteoraDlmmPool{}
	if err := pool.Decode(info.Value.Data.GetBinary()); err != nil {
		return nil, errs.Wrap(errs.Internal, "decode dlmm account", err)
	}
	pool.PoolId = addr
	return pool, nil
}

// sqrtPriceX64FromBinID converts a DLMM bin id into the same Q64.64
// sqrt-price representation pkg/tickmath's amount/liquidity formulas use,
// substituting DLMM's per-pool base (1 + binStep/10000) for the fixed
// 1.0001 Uniswap-style base tick-venues use.
func sqrtPriceX64FromBinID(binID int32, binStep uint16) cosmath.Int {
	base := 1.0 + float64(binStep)/10_000.0
	price := math.Pow(base, float64(binID))
	sqrtPrice := math.Sqrt(price)
	scaled := new(big.Float).Mul(big.NewFloat(sqrtPrice), new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 64)))
	i, _ := scaled.Int(nil)
	return cosmath.NewIntFromBigInt(i)
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
