// Package whirlpool decodes Orca Whirlpool CLMM pool accounts and builds the
// instructions the LP engine needs against them: swap, open position,
// increase/decrease liquidity and fee collection. The account layout and
// quote math below are carried over from the donor SolRoute fork that first
// reverse-engineered Whirlpool's on-chain struct; the instruction builders
// are new, since that donor only ever got as far as a stubbed swap.
package whirlpool

import (
	"context"
	"fmt"
	"math/big"
	"time"

	cosmath "cosmossdk.io/math"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/solana-zh/lp-engine/pkg"
	"github.com/solana-zh/lp-engine/pkg/sol"
)

// WhirlpoolProgramID is Orca's mainnet Whirlpool program.
var WhirlpoolProgramID = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")

// WhirlpoolPool represents an Orca Whirlpool CLMM pool account.
type WhirlpoolPool struct {
	Discriminator [8]uint8

	WhirlpoolsConfig solana.PublicKey
	WhirlpoolBump    [1]uint8

	TokenMintA      solana.PublicKey
	TokenMintB      solana.PublicKey
	TokenVaultA     solana.PublicKey
	TokenVaultB     solana.PublicKey
	TickSpacing     uint16
	TickSpacingSeed [2]uint8

	FeeRate          uint16
	ProtocolFeeRate  uint16
	Liquidity        uint128.Uint128
	SqrtPrice        uint128.Uint128
	TickCurrentIndex int32
	ProtocolFeeOwedA uint64
	ProtocolFeeOwedB uint64
	FeeGrowthGlobalA uint128.Uint128
	FeeGrowthGlobalB uint128.Uint128

	RewardLastUpdatedTimestamp uint64
	RewardInfos                [3]RewardInfo

	PoolId         solana.PublicKey
	TickArrayCache map[string]*TickArray

	lastCacheUpdate time.Time
	cacheDataFresh  bool
}

type RewardInfo struct {
	Mint                  solana.PublicKey
	Vault                 solana.PublicKey
	Authority             solana.PublicKey
	EmissionsPerSecondX64 uint128.Uint128
	GrowthGlobalX64       uint128.Uint128
}

type TickArray struct {
	StartTickIndex   int32
	Ticks            [88]Tick
	WhirlpoolAddress solana.PublicKey
}

type Tick struct {
	Initialized          bool
	LiquidityNet         big.Int
	LiquidityGross       uint128.Uint128
	FeeGrowthOutsideA    uint128.Uint128
	FeeGrowthOutsideB    uint128.Uint128
	RewardGrowthsOutside [3]uint128.Uint128
}

func (pool *WhirlpoolPool) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameWhirlpool
}

func (pool *WhirlpoolPool) GetProgramID() solana.PublicKey {
	return WhirlpoolProgramID
}

func (pool *WhirlpoolPool) GetID() string {
	return pool.PoolId.String()
}

func (pool *WhirlpoolPool) GetTokens() (string, string) {
	return pool.TokenMintA.String(), pool.TokenMintB.String()
}

func (pool *WhirlpoolPool) GetBaseVault() string {
	return pool.TokenVaultA.String()
}

func (pool *WhirlpoolPool) GetQuoteVault() string {
	return pool.TokenVaultB.String()
}

// Decode parses a raw Whirlpool account (653 bytes, Anchor layout) into pool.
func (pool *WhirlpoolPool) Decode(data []byte) error {
	if len(data) < 653 {
		return fmt.Errorf("insufficient data: expected 653 bytes, got %d", len(data))
	}

	copy(pool.Discriminator[:], data[0:8])
	pool.WhirlpoolsConfig = solana.PublicKeyFromBytes(data[8:40])
	pool.WhirlpoolBump[0] = data[40]

	decoder := bin.NewBinDecoder(data[41:43])
	decoder.Decode(&pool.TickSpacing)
	decoder = bin.NewBinDecoder(data[43:45])
	decoder.Decode(&pool.TickSpacingSeed)
	decoder = bin.NewBinDecoder(data[45:47])
	decoder.Decode(&pool.FeeRate)
	decoder = bin.NewBinDecoder(data[47:49])
	decoder.Decode(&pool.ProtocolFeeRate)
	decoder = bin.NewBinDecoder(data[49:65])
	decoder.Decode(&pool.Liquidity)
	decoder = bin.NewBinDecoder(data[65:81])
	decoder.Decode(&pool.SqrtPrice)
	decoder = bin.NewBinDecoder(data[81:85])
	decoder.Decode(&pool.TickCurrentIndex)
	decoder = bin.NewBinDecoder(data[85:93])
	decoder.Decode(&pool.ProtocolFeeOwedA)
	decoder = bin.NewBinDecoder(data[93:101])
	decoder.Decode(&pool.ProtocolFeeOwedB)

	pool.TokenMintA = solana.PublicKeyFromBytes(data[101:133])
	pool.TokenVaultA = solana.PublicKeyFromBytes(data[133:165])

	decoder = bin.NewBinDecoder(data[165:181])
	decoder.Decode(&pool.FeeGrowthGlobalA)

	pool.TokenMintB = solana.PublicKeyFromBytes(data[181:213])
	pool.TokenVaultB = solana.PublicKeyFromBytes(data[213:245])

	decoder = bin.NewBinDecoder(data[245:261])
	decoder.Decode(&pool.FeeGrowthGlobalB)

	decoder = bin.NewBinDecoder(data[261:269])
	decoder.Decode(&pool.RewardLastUpdatedTimestamp)

	decoder = bin.NewBinDecoder(data[269:653])
	decoder.Decode(&pool.RewardInfos)

	pool.TickArrayCache = make(map[string]*TickArray)
	return nil
}

// Quote estimates swap output using the pool's current sqrt-price only,
// without walking tick arrays. Accurate for swaps that stay within the
// currently-active tick; larger swaps will see worse execution on-chain
// than this quote implies.
func (pool *WhirlpoolPool) Quote(ctx context.Context, solClient *sol.Client, inputMint string, amount cosmath.Int) (cosmath.Int, error) {
	if amount.IsZero() {
		return cosmath.ZeroInt(), nil
	}

	zeroForOne := inputMint == pool.TokenMintA.String()

	sqrtPriceX64 := cosmath.NewIntFromBigInt(pool.SqrtPrice.Big())
	liquidity := cosmath.NewIntFromBigInt(pool.Liquidity.Big())

	feeAmount := amount.Mul(cosmath.NewInt(int64(pool.FeeRate))).Quo(cosmath.NewInt(1_000_000))
	amountAfterFee := amount.Sub(feeAmount)

	if liquidity.IsZero() {
		return cosmath.ZeroInt(), fmt.Errorf("pool has zero liquidity")
	}

	q64BigInt := new(big.Int).Lsh(big.NewInt(1), 64)
	sqrtPriceSquared := new(big.Int).Mul(sqrtPriceX64.BigInt(), sqrtPriceX64.BigInt())
	q128 := new(big.Int).Mul(q64BigInt, q64BigInt)

	if zeroForOne {
		numerator := new(big.Int).Mul(amountAfterFee.BigInt(), sqrtPriceSquared)
		result := new(big.Int).Div(numerator, q128)
		return cosmath.NewIntFromBigInt(result), nil
	}

	if sqrtPriceSquared.Sign() == 0 {
		return cosmath.ZeroInt(), fmt.Errorf("sqrt price is zero")
	}
	numerator := new(big.Int).Mul(amountAfterFee.BigInt(), q128)
	result := new(big.Int).Div(numerator, sqrtPriceSquared)
	return cosmath.NewIntFromBigInt(result), nil
}
