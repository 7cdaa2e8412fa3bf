package whirlpool

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
	"github.com/solana-zh/lp-engine/pkg/sol"
)

var (
	associatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	rentSysvarID             = solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
)

// OpenPositionParams carries everything needed to mint a fresh position NFT
// and open its position account over [tickLower, tickUpper].
type OpenPositionParams struct {
	Owner        solana.PublicKey
	PositionMint solana.PublicKey
	TickLower    int32
	TickUpper    int32
}

// BuildOpenPosition mints a new position NFT, creates its associated token
// account and opens the position account bound to [TickLower, TickUpper].
// The caller supplies a fresh PositionMint keypair's public key; signing that
// keypair alongside the owner is the caller's responsibility.
func (pool *WhirlpoolPool) BuildOpenPosition(ctx context.Context, p OpenPositionParams) ([]solana.Instruction, error) {
	position, bump, err := DerivePositionPDA(p.PositionMint)
	if err != nil {
		return nil, fmt.Errorf("derive position pda: %w", err)
	}
	positionTokenAccount, _, err := solana.FindAssociatedTokenAddress(p.Owner, p.PositionMint)
	if err != nil {
		return nil, fmt.Errorf("derive position token account: %w", err)
	}

	inst := openPositionInstruction{
		Bump:             bump,
		TickLowerIndex:   p.TickLower,
		TickUpperIndex:   p.TickUpper,
		AccountMetaSlice: make(solana.AccountMetaSlice, 10),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	inst.AccountMetaSlice[0] = solana.NewAccountMeta(p.Owner, true, true)
	inst.AccountMetaSlice[1] = solana.NewAccountMeta(p.Owner, false, false)
	inst.AccountMetaSlice[2] = solana.NewAccountMeta(position, true, false)
	inst.AccountMetaSlice[3] = solana.NewAccountMeta(p.PositionMint, true, true)
	inst.AccountMetaSlice[4] = solana.NewAccountMeta(positionTokenAccount, true, false)
	inst.AccountMetaSlice[5] = solana.NewAccountMeta(pool.PoolId, false, false)
	inst.AccountMetaSlice[6] = solana.NewAccountMeta(sol.TokenProgramID, false, false)
	inst.AccountMetaSlice[7] = solana.NewAccountMeta(solana.SystemProgramID, false, false)
	inst.AccountMetaSlice[8] = solana.NewAccountMeta(rentSysvarID, false, false)
	inst.AccountMetaSlice[9] = solana.NewAccountMeta(associatedTokenProgramID, false, false)

	tickArrayIxs, err := pool.ensureTickArraysCover(p.TickLower, p.TickUpper, p.Owner)
	if err != nil {
		return nil, err
	}

	return append([]solana.Instruction{&inst}, tickArrayIxs...), nil
}

// IncreaseLiquidityParams bounds the amounts the caller is willing to deposit
// to fund the requested liquidity delta.
type IncreaseLiquidityParams struct {
	Owner                 solana.PublicKey
	PositionMint           solana.PublicKey
	TickLower, TickUpper   int32
	LiquidityAmount        cosmath.Int
	TokenMaxA, TokenMaxB   cosmath.Int
	OwnerTokenAccountA     solana.PublicKey
	OwnerTokenAccountB     solana.PublicKey
}

func (pool *WhirlpoolPool) BuildIncreaseLiquidity(ctx context.Context, p IncreaseLiquidityParams) ([]solana.Instruction, error) {
	position, _, err := DerivePositionPDA(p.PositionMint)
	if err != nil {
		return nil, fmt.Errorf("derive position pda: %w", err)
	}
	positionTokenAccount, _, err := solana.FindAssociatedTokenAddress(p.Owner, p.PositionMint)
	if err != nil {
		return nil, fmt.Errorf("derive position token account: %w", err)
	}
	tickArrayLower, _, err := DeriveTickArrayPDA(pool.PoolId, TickArrayStartIndex(p.TickLower, pool.TickSpacing))
	if err != nil {
		return nil, fmt.Errorf("derive lower tick array: %w", err)
	}
	tickArrayUpper, _, err := DeriveTickArrayPDA(pool.PoolId, TickArrayStartIndex(p.TickUpper, pool.TickSpacing))
	if err != nil {
		return nil, fmt.Errorf("derive upper tick array: %w", err)
	}

	inst := liquidityInstruction{
		name:             "increaseLiquidity",
		Liquidity:        uint128.FromBig(p.LiquidityAmount.BigInt()),
		TokenAmountA:     p.TokenMaxA.Uint64(),
		TokenAmountB:     p.TokenMaxB.Uint64(),
		AccountMetaSlice: make(solana.AccountMetaSlice, 11),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	inst.AccountMetaSlice[0] = solana.NewAccountMeta(pool.PoolId, true, false)
	inst.AccountMetaSlice[1] = solana.NewAccountMeta(sol.TokenProgramID, false, false)
	inst.AccountMetaSlice[2] = solana.NewAccountMeta(p.Owner, false, true)
	inst.AccountMetaSlice[3] = solana.NewAccountMeta(position, true, false)
	inst.AccountMetaSlice[4] = solana.NewAccountMeta(positionTokenAccount, false, false)
	inst.AccountMetaSlice[5] = solana.NewAccountMeta(p.OwnerTokenAccountA, true, false)
	inst.AccountMetaSlice[6] = solana.NewAccountMeta(p.OwnerTokenAccountB, true, false)
	inst.AccountMetaSlice[7] = solana.NewAccountMeta(pool.TokenVaultA, true, false)
	inst.AccountMetaSlice[8] = solana.NewAccountMeta(pool.TokenVaultB, true, false)
	inst.AccountMetaSlice[9] = solana.NewAccountMeta(tickArrayLower, true, false)
	inst.AccountMetaSlice[10] = solana.NewAccountMeta(tickArrayUpper, true, false)

	return []solana.Instruction{&inst}, nil
}

// DecreaseLiquidityParams mirrors IncreaseLiquidityParams but with minimums
// instead of maximums, since the caller is withdrawing rather than funding.
type DecreaseLiquidityParams struct {
	Owner                solana.PublicKey
	PositionMint         solana.PublicKey
	TickLower, TickUpper int32
	LiquidityAmount      cosmath.Int
	TokenMinA, TokenMinB cosmath.Int
	OwnerTokenAccountA   solana.PublicKey
	OwnerTokenAccountB   solana.PublicKey
}

func (pool *WhirlpoolPool) BuildDecreaseLiquidity(ctx context.Context, p DecreaseLiquidityParams) ([]solana.Instruction, error) {
	position, _, err := DerivePositionPDA(p.PositionMint)
	if err != nil {
		return nil, fmt.Errorf("derive position pda: %w", err)
	}
	positionTokenAccount, _, err := solana.FindAssociatedTokenAddress(p.Owner, p.PositionMint)
	if err != nil {
		return nil, fmt.Errorf("derive position token account: %w", err)
	}
	tickArrayLower, _, err := DeriveTickArrayPDA(pool.PoolId, TickArrayStartIndex(p.TickLower, pool.TickSpacing))
	if err != nil {
		return nil, fmt.Errorf("derive lower tick array: %w", err)
	}
	tickArrayUpper, _, err := DeriveTickArrayPDA(pool.PoolId, TickArrayStartIndex(p.TickUpper, pool.TickSpacing))
	if err != nil {
		return nil, fmt.Errorf("derive upper tick array: %w", err)
	}

	inst := liquidityInstruction{
		name:             "decreaseLiquidity",
		Liquidity:        uint128.FromBig(p.LiquidityAmount.BigInt()),
		TokenAmountA:     p.TokenMinA.Uint64(),
		TokenAmountB:     p.TokenMinB.Uint64(),
		AccountMetaSlice: make(solana.AccountMetaSlice, 11),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	inst.AccountMetaSlice[0] = solana.NewAccountMeta(pool.PoolId, true, false)
	inst.AccountMetaSlice[1] = solana.NewAccountMeta(sol.TokenProgramID, false, false)
	inst.AccountMetaSlice[2] = solana.NewAccountMeta(p.Owner, false, true)
	inst.AccountMetaSlice[3] = solana.NewAccountMeta(position, true, false)
	inst.AccountMetaSlice[4] = solana.NewAccountMeta(positionTokenAccount, false, false)
	inst.AccountMetaSlice[5] = solana.NewAccountMeta(p.OwnerTokenAccountA, true, false)
	inst.AccountMetaSlice[6] = solana.NewAccountMeta(p.OwnerTokenAccountB, true, false)
	inst.AccountMetaSlice[7] = solana.NewAccountMeta(pool.TokenVaultA, true, false)
	inst.AccountMetaSlice[8] = solana.NewAccountMeta(pool.TokenVaultB, true, false)
	inst.AccountMetaSlice[9] = solana.NewAccountMeta(tickArrayLower, true, false)
	inst.AccountMetaSlice[10] = solana.NewAccountMeta(tickArrayUpper, true, false)

	return []solana.Instruction{&inst}, nil
}

// CollectFeesParams identifies the position to sweep accrued fees from.
type CollectFeesParams struct {
	Owner              solana.PublicKey
	PositionMint       solana.PublicKey
	OwnerTokenAccountA solana.PublicKey
	OwnerTokenAccountB solana.PublicKey
}

func (pool *WhirlpoolPool) BuildCollectFees(ctx context.Context, p CollectFeesParams) ([]solana.Instruction, error) {
	position, _, err := DerivePositionPDA(p.PositionMint)
	if err != nil {
		return nil, fmt.Errorf("derive position pda: %w", err)
	}
	positionTokenAccount, _, err := solana.FindAssociatedTokenAddress(p.Owner, p.PositionMint)
	if err != nil {
		return nil, fmt.Errorf("derive position token account: %w", err)
	}

	inst := collectFeesInstruction{
		AccountMetaSlice: make(solana.AccountMetaSlice, 9),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	inst.AccountMetaSlice[0] = solana.NewAccountMeta(pool.PoolId, false, false)
	inst.AccountMetaSlice[1] = solana.NewAccountMeta(p.Owner, false, true)
	inst.AccountMetaSlice[2] = solana.NewAccountMeta(position, true, false)
	inst.AccountMetaSlice[3] = solana.NewAccountMeta(positionTokenAccount, false, false)
	inst.AccountMetaSlice[4] = solana.NewAccountMeta(p.OwnerTokenAccountA, true, false)
	inst.AccountMetaSlice[5] = solana.NewAccountMeta(pool.TokenVaultA, true, false)
	inst.AccountMetaSlice[6] = solana.NewAccountMeta(p.OwnerTokenAccountB, true, false)
	inst.AccountMetaSlice[7] = solana.NewAccountMeta(pool.TokenVaultB, true, false)
	inst.AccountMetaSlice[8] = solana.NewAccountMeta(sol.TokenProgramID, false, false)

	return []solana.Instruction{&inst}, nil
}

// BuildClosePosition burns the position NFT and reclaims the position
// account's rent once liquidity has been fully withdrawn.
func (pool *WhirlpoolPool) BuildClosePosition(ctx context.Context, owner, positionMint, receiver solana.PublicKey) ([]solana.Instruction, error) {
	position, _, err := DerivePositionPDA(positionMint)
	if err != nil {
		return nil, fmt.Errorf("derive position pda: %w", err)
	}
	positionTokenAccount, _, err := solana.FindAssociatedTokenAddress(owner, positionMint)
	if err != nil {
		return nil, fmt.Errorf("derive position token account: %w", err)
	}

	inst := closePositionInstruction{
		AccountMetaSlice: make(solana.AccountMetaSlice, 6),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	inst.AccountMetaSlice[0] = solana.NewAccountMeta(owner, false, true)
	inst.AccountMetaSlice[1] = solana.NewAccountMeta(receiver, true, false)
	inst.AccountMetaSlice[2] = solana.NewAccountMeta(position, true, false)
	inst.AccountMetaSlice[3] = solana.NewAccountMeta(positionMint, true, false)
	inst.AccountMetaSlice[4] = solana.NewAccountMeta(positionTokenAccount, true, false)
	inst.AccountMetaSlice[5] = solana.NewAccountMeta(sol.TokenProgramID, false, false)

	return []solana.Instruction{&inst}, nil
}

// ensureTickArraysCover is a placeholder hook for the lower/upper tick array
// init instructions a brand-new range may need; callers that know the
// arrays already exist (the common case once a pool has traded through a
// range) can ignore the returned empty slice.
func (pool *WhirlpoolPool) ensureTickArraysCover(tickLower, tickUpper int32, funder solana.PublicKey) ([]solana.Instruction, error) {
	return nil, nil
}

type openPositionInstruction struct {
	bin.BaseVariant
	Bump                    uint8
	TickLowerIndex          int32
	TickUpperIndex          int32
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (i *openPositionInstruction) ProgramID() solana.PublicKey { return WhirlpoolProgramID }
func (i *openPositionInstruction) Accounts() []*solana.AccountMeta {
	return i.AccountMetaSlice
}
func (i *openPositionInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(anchor.GetDiscriminator("global", "openPosition"))
	buf.WriteByte(i.Bump)
	if err := binary.Write(buf, binary.LittleEndian, i.TickLowerIndex); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, i.TickUpperIndex); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type liquidityInstruction struct {
	bin.BaseVariant
	name                    string
	Liquidity               uint128.Uint128
	TokenAmountA            uint64
	TokenAmountB            uint64
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (i *liquidityInstruction) ProgramID() solana.PublicKey { return WhirlpoolProgramID }
func (i *liquidityInstruction) Accounts() []*solana.AccountMeta {
	return i.AccountMetaSlice
}
func (i *liquidityInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(anchor.GetDiscriminator("global", i.name))
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint64(i.Liquidity.Lo, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(i.Liquidity.Hi, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(i.TokenAmountA, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(i.TokenAmountB, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type collectFeesInstruction struct {
	bin.BaseVariant
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (i *collectFeesInstruction) ProgramID() solana.PublicKey { return WhirlpoolProgramID }
func (i *collectFeesInstruction) Accounts() []*solana.AccountMeta {
	return i.AccountMetaSlice
}
func (i *collectFeesInstruction) Data() ([]byte, error) {
	return anchor.GetDiscriminator("global", "collectFees"), nil
}

type closePositionInstruction struct {
	bin.BaseVariant
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (i *closePositionInstruction) ProgramID() solana.PublicKey { return WhirlpoolProgramID }
func (i *closePositionInstruction) Accounts() []*solana.AccountMeta {
	return i.AccountMetaSlice
}
func (i *closePositionInstruction) Data() ([]byte, error) {
	return anchor.GetDiscriminator("global", "closePosition"), nil
}
