package raydium

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	cosmath "cosmossdk.io/math"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/solana-zh/lp-engine/pkg/anchor"
)

var rentSysvarID = solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")

// DeriveProtocolPositionPDA derives the shared per-pool, per-range position
// account Raydium CLMM uses to track aggregate liquidity across every NFT
// holder in that range.
func DeriveProtocolPositionPDA(poolID solana.PublicKey, tickLower, tickUpper int32) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte("position"), poolID.Bytes(), i32ToBytes(int64(tickLower)), i32ToBytes(int64(tickUpper))},
		RAYDIUM_CLMM_PROGRAM_ID,
	)
}

// DerivePersonalPositionPDA derives the per-NFT personal position account
// tracking one user's slice of a protocol position.
func DerivePersonalPositionPDA(positionNftMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte("position"), positionNftMint.Bytes()},
		RAYDIUM_CLMM_PROGRAM_ID,
	)
}

func derivePositionTickArrays(poolID solana.PublicKey, tickLower, tickUpper int32, tickSpacing uint16) (solana.PublicKey, solana.PublicKey) {
	startLower := getTickArrayStartIndexByTick(int64(tickLower), int64(tickSpacing))
	startUpper := getTickArrayStartIndexByTick(int64(tickUpper), int64(tickSpacing))
	return getPdaTickArrayAddress(RAYDIUM_CLMM_PROGRAM_ID, poolID, startLower),
		getPdaTickArrayAddress(RAYDIUM_CLMM_PROGRAM_ID, poolID, startUpper)
}

// OpenPositionParams describes a new CLMM position over [TickLower, TickUpper],
// minted as a fresh position-NFT owned by Owner.
type OpenPositionParams struct {
	Owner           solana.PublicKey
	PositionNftMint solana.PublicKey
	TickLower       int32
	TickUpper       int32
	LiquidityAmount cosmath.Int
	AmountMax0      cosmath.Int
	AmountMax1      cosmath.Int
	OwnerTokenAccount0 solana.PublicKey
	OwnerTokenAccount1 solana.PublicKey
}

func (pool *CLMMPool) BuildOpenPosition(ctx context.Context, p OpenPositionParams) ([]solana.Instruction, error) {
	protocolPosition, _, err := DeriveProtocolPositionPDA(pool.PoolId, p.TickLower, p.TickUpper)
	if err != nil {
		return nil, fmt.Errorf("derive protocol position pda: %w", err)
	}
	personalPosition, _, err := DerivePersonalPositionPDA(p.PositionNftMint)
	if err != nil {
		return nil, fmt.Errorf("derive personal position pda: %w", err)
	}
	tickArrayLower, tickArrayUpper := derivePositionTickArrays(pool.PoolId, p.TickLower, p.TickUpper, pool.TickSpacing)
	nftAccount, _, err := solana.FindAssociatedTokenAddress(p.Owner, p.PositionNftMint)
	if err != nil {
		return nil, fmt.Errorf("derive position nft ata: %w", err)
	}

	liquidityX64 := uint128.From64(p.LiquidityAmount.Uint64())

	inst := openPositionInstruction{
		TickLowerIndex:   p.TickLower,
		TickUpperIndex:   p.TickUpper,
		TickArrayLowerStartIndex: int32(getTickArrayStartIndexByTick(int64(p.TickLower), int64(pool.TickSpacing))),
		TickArrayUpperStartIndex: int32(getTickArrayStartIndexByTick(int64(p.TickUpper), int64(pool.TickSpacing))),
		LiquidityX64:     liquidityX64,
		AmountMax0:       p.AmountMax0.Uint64(),
		AmountMax1:       p.AmountMax1.Uint64(),
		AccountMetaSlice: make(solana.AccountMetaSlice, 16),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	inst.AccountMetaSlice[0] = solana.NewAccountMeta(p.Owner, false, true)
	inst.AccountMetaSlice[1] = solana.NewAccountMeta(p.Owner, false, false)
	inst.AccountMetaSlice[2] = solana.NewAccountMeta(p.PositionNftMint, true, true)
	inst.AccountMetaSlice[3] = solana.NewAccountMeta(nftAccount, true, false)
	inst.AccountMetaSlice[4] = solana.NewAccountMeta(pool.PoolId, true, false)
	inst.AccountMetaSlice[5] = solana.NewAccountMeta(protocolPosition, true, false)
	inst.AccountMetaSlice[6] = solana.NewAccountMeta(tickArrayLower, true, false)
	inst.AccountMetaSlice[7] = solana.NewAccountMeta(tickArrayUpper, true, false)
	inst.AccountMetaSlice[8] = solana.NewAccountMeta(personalPosition, true, false)
	inst.AccountMetaSlice[9] = solana.NewAccountMeta(p.OwnerTokenAccount0, true, false)
	inst.AccountMetaSlice[10] = solana.NewAccountMeta(p.OwnerTokenAccount1, true, false)
	inst.AccountMetaSlice[11] = solana.NewAccountMeta(pool.TokenVault0, true, false)
	inst.AccountMetaSlice[12] = solana.NewAccountMeta(pool.TokenVault1, true, false)
	inst.AccountMetaSlice[13] = solana.NewAccountMeta(rentSysvarID, false, false)
	inst.AccountMetaSlice[14] = solana.NewAccountMeta(solana.SystemProgramID, false, false)
	inst.AccountMetaSlice[15] = solana.NewAccountMeta(solana.TokenProgramID, false, false)

	return []solana.Instruction{&inst}, nil
}

// IncreaseLiquidityParams adds liquidity to an already-open position.
type IncreaseLiquidityParams struct {
	Owner              solana.PublicKey
	PositionNftMint    solana.PublicKey
	TickLower          int32
	TickUpper          int32
	LiquidityAmount    cosmath.Int
	AmountMax0         cosmath.Int
	AmountMax1         cosmath.Int
	OwnerTokenAccount0 solana.PublicKey
	OwnerTokenAccount1 solana.PublicKey
}

func (pool *CLMMPool) BuildIncreaseLiquidity(ctx context.Context, p IncreaseLiquidityParams) ([]solana.Instruction, error) {
	protocolPosition, _, err := DeriveProtocolPositionPDA(pool.PoolId, p.TickLower, p.TickUpper)
	if err != nil {
		return nil, fmt.Errorf("derive protocol position pda: %w", err)
	}
	personalPosition, _, err := DerivePersonalPositionPDA(p.PositionNftMint)
	if err != nil {
		return nil, fmt.Errorf("derive personal position pda: %w", err)
	}
	tickArrayLower, tickArrayUpper := derivePositionTickArrays(pool.PoolId, p.TickLower, p.TickUpper, pool.TickSpacing)
	nftAccount, _, err := solana.FindAssociatedTokenAddress(p.Owner, p.PositionNftMint)
	if err != nil {
		return nil, fmt.Errorf("derive position nft ata: %w", err)
	}

	inst := liquidityInstruction{
		name:             "increaseLiquidity",
		LiquidityX64:     uint128.From64(p.LiquidityAmount.Uint64()),
		AmountMax0:       p.AmountMax0.Uint64(),
		AmountMax1:       p.AmountMax1.Uint64(),
		AccountMetaSlice: make(solana.AccountMetaSlice, 11),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	inst.AccountMetaSlice[0] = solana.NewAccountMeta(p.Owner, false, true)
	inst.AccountMetaSlice[1] = solana.NewAccountMeta(nftAccount, false, false)
	inst.AccountMetaSlice[2] = solana.NewAccountMeta(personalPosition, true, false)
	inst.AccountMetaSlice[3] = solana.NewAccountMeta(pool.PoolId, true, false)
	inst.AccountMetaSlice[4] = solana.NewAccountMeta(protocolPosition, true, false)
	inst.AccountMetaSlice[5] = solana.NewAccountMeta(tickArrayLower, true, false)
	inst.AccountMetaSlice[6] = solana.NewAccountMeta(tickArrayUpper, true, false)
	inst.AccountMetaSlice[7] = solana.NewAccountMeta(p.OwnerTokenAccount0, true, false)
	inst.AccountMetaSlice[8] = solana.NewAccountMeta(p.OwnerTokenAccount1, true, false)
	inst.AccountMetaSlice[9] = solana.NewAccountMeta(pool.TokenVault0, true, false)
	inst.AccountMetaSlice[10] = solana.NewAccountMeta(pool.TokenVault1, true, false)

	return []solana.Instruction{&inst}, nil
}

// DecreaseLiquidityParams withdraws liquidity from an existing position.
type DecreaseLiquidityParams struct {
	Owner              solana.PublicKey
	PositionNftMint    solana.PublicKey
	TickLower          int32
	TickUpper          int32
	LiquidityAmount    cosmath.Int
	AmountMin0         cosmath.Int
	AmountMin1         cosmath.Int
	OwnerTokenAccount0 solana.PublicKey
	OwnerTokenAccount1 solana.PublicKey
}

func (pool *CLMMPool) BuildDecreaseLiquidity(ctx context.Context, p DecreaseLiquidityParams) ([]solana.Instruction, error) {
	protocolPosition, _, err := DeriveProtocolPositionPDA(pool.PoolId, p.TickLower, p.TickUpper)
	if err != nil {
		return nil, fmt.Errorf("derive protocol position pda: %w", err)
	}
	personalPosition, _, err := DerivePersonalPositionPDA(p.PositionNftMint)
	if err != nil {
		return nil, fmt.Errorf("derive personal position pda: %w", err)
	}
	tickArrayLower, tickArrayUpper := derivePositionTickArrays(pool.PoolId, p.TickLower, p.TickUpper, pool.TickSpacing)
	nftAccount, _, err := solana.FindAssociatedTokenAddress(p.Owner, p.PositionNftMint)
	if err != nil {
		return nil, fmt.Errorf("derive position nft ata: %w", err)
	}

	inst := liquidityInstruction{
		name:             "decreaseLiquidity",
		LiquidityX64:     uint128.From64(p.LiquidityAmount.Uint64()),
		AmountMax0:       p.AmountMin0.Uint64(),
		AmountMax1:       p.AmountMin1.Uint64(),
		AccountMetaSlice: make(solana.AccountMetaSlice, 13),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	inst.AccountMetaSlice[0] = solana.NewAccountMeta(p.Owner, false, true)
	inst.AccountMetaSlice[1] = solana.NewAccountMeta(nftAccount, false, false)
	inst.AccountMetaSlice[2] = solana.NewAccountMeta(personalPosition, true, false)
	inst.AccountMetaSlice[3] = solana.NewAccountMeta(pool.PoolId, true, false)
	inst.AccountMetaSlice[4] = solana.NewAccountMeta(protocolPosition, true, false)
	inst.AccountMetaSlice[5] = solana.NewAccountMeta(pool.TokenVault0, true, false)
	inst.AccountMetaSlice[6] = solana.NewAccountMeta(pool.TokenVault1, true, false)
	inst.AccountMetaSlice[7] = solana.NewAccountMeta(tickArrayLower, true, false)
	inst.AccountMetaSlice[8] = solana.NewAccountMeta(tickArrayUpper, true, false)
	inst.AccountMetaSlice[9] = solana.NewAccountMeta(p.OwnerTokenAccount0, true, false)
	inst.AccountMetaSlice[10] = solana.NewAccountMeta(p.OwnerTokenAccount1, true, false)
	inst.AccountMetaSlice[11] = solana.NewAccountMeta(solana.TokenProgramID, false, false)
	inst.AccountMetaSlice[12] = solana.NewAccountMeta(RAYDIUM_CLMM_PROGRAM_ID, false, false)

	return []solana.Instruction{&inst}, nil
}

// CollectFeesParams sweeps accrued swap fees out of a position without
// touching its liquidity.
type CollectFeesParams struct {
	Owner              solana.PublicKey
	PositionNftMint    solana.PublicKey
	TickLower          int32
	TickUpper          int32
	OwnerTokenAccount0 solana.PublicKey
	OwnerTokenAccount1 solana.PublicKey
}

func (pool *CLMMPool) BuildCollectFees(ctx context.Context, p CollectFeesParams) ([]solana.Instruction, error) {
	// Raydium CLMM has no standalone collect-fee instruction: fees are
	// realized by calling decreaseLiquidity with a zero liquidity delta,
	// which still sweeps accrued fees into the owner's token accounts.
	return pool.BuildDecreaseLiquidity(ctx, DecreaseLiquidityParams{
		Owner:              p.Owner,
		PositionNftMint:    p.PositionNftMint,
		TickLower:          p.TickLower,
		TickUpper:          p.TickUpper,
		LiquidityAmount:    cosmath.ZeroInt(),
		AmountMin0:         cosmath.ZeroInt(),
		AmountMin1:         cosmath.ZeroInt(),
		OwnerTokenAccount0: p.OwnerTokenAccount0,
		OwnerTokenAccount1: p.OwnerTokenAccount1,
	})
}

// BuildClosePosition reclaims a position's rent once its liquidity has
// been fully withdrawn, burning the position NFT.
func (pool *CLMMPool) BuildClosePosition(ctx context.Context, owner, positionNftMint solana.PublicKey, tickLower, tickUpper int32) ([]solana.Instruction, error) {
	personalPosition, _, err := DerivePersonalPositionPDA(positionNftMint)
	if err != nil {
		return nil, fmt.Errorf("derive personal position pda: %w", err)
	}
	nftAccount, _, err := solana.FindAssociatedTokenAddress(owner, positionNftMint)
	if err != nil {
		return nil, fmt.Errorf("derive position nft ata: %w", err)
	}

	inst := closePositionInstruction{
		AccountMetaSlice: make(solana.AccountMetaSlice, 6),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	inst.AccountMetaSlice[0] = solana.NewAccountMeta(owner, false, true)
	inst.AccountMetaSlice[1] = solana.NewAccountMeta(positionNftMint, true, false)
	inst.AccountMetaSlice[2] = solana.NewAccountMeta(nftAccount, true, false)
	inst.AccountMetaSlice[3] = solana.NewAccountMeta(personalPosition, true, false)
	inst.AccountMetaSlice[4] = solana.NewAccountMeta(solana.TokenProgramID, false, false)
	inst.AccountMetaSlice[5] = solana.NewAccountMeta(solana.SystemProgramID, false, false)

	return []solana.Instruction{&inst}, nil
}

type openPositionInstruction struct {
	bin.BaseVariant
	TickLowerIndex           int32
	TickUpperIndex           int32
	TickArrayLowerStartIndex int32
	TickArrayUpperStartIndex int32
	LiquidityX64             uint128.Uint128
	AmountMax0               uint64
	AmountMax1               uint64
	solana.AccountMetaSlice  `bin:"-" borsh_skip:"true"`
}

func (i *openPositionInstruction) ProgramID() solana.PublicKey { return RAYDIUM_CLMM_PROGRAM_ID }
func (i *openPositionInstruction) Accounts() []*solana.AccountMeta {
	return i.AccountMetaSlice
}
func (i *openPositionInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(anchor.GetDiscriminator("global", "openPositionV2"))
	if err := binary.Write(buf, binary.LittleEndian, i.TickLowerIndex); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, i.TickUpperIndex); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, i.TickArrayLowerStartIndex); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, i.TickArrayUpperStartIndex); err != nil {
		return nil, err
	}
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint64(i.LiquidityX64.Lo, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(i.LiquidityX64.Hi, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(i.AmountMax0, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(i.AmountMax1, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type liquidityInstruction struct {
	bin.BaseVariant
	name                    string
	LiquidityX64            uint128.Uint128
	AmountMax0              uint64
	AmountMax1              uint64
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (i *liquidityInstruction) ProgramID() solana.PublicKey { return RAYDIUM_CLMM_PROGRAM_ID }
func (i *liquidityInstruction) Accounts() []*solana.AccountMeta {
	return i.AccountMetaSlice
}
func (i *liquidityInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(anchor.GetDiscriminator("global", i.name))
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint64(i.LiquidityX64.Lo, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(i.LiquidityX64.Hi, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(i.AmountMax0, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(i.AmountMax1, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type closePositionInstruction struct {
	bin.BaseVariant
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (i *closePositionInstruction) ProgramID() solana.PublicKey { return RAYDIUM_CLMM_PROGRAM_ID }
func (i *closePositionInstruction) Accounts() []*solana.AccountMeta {
	return i.AccountMetaSlice
}
func (i *closePositionInstruction) Data() ([]byte, error) {
	return anchor.GetDiscriminator("global", "closePosition"), nil
}
