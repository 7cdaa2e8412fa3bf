package meteora

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	cosmath "cosmossdk.io/math"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/pkg/anchor"
)

// ActiveBinID returns the pool's current active bin id.
func (pool *MeteoraDlmmPool) ActiveBinID() int32 { return pool.activeId }

// BinStep returns the pool's bin step, in basis points.
func (pool *MeteoraDlmmPool) BinStep() uint16 { return pool.binStep }

// BinIDBounds returns the pool's configured [minBinId, maxBinId] range.
func (pool *MeteoraDlmmPool) BinIDBounds() (int32, int32) {
	return pool.parameters.minBinId, pool.parameters.maxBinId
}

// TokenMints returns the pool's X and Y mints.
func (pool *MeteoraDlmmPool) TokenMints() (solana.PublicKey, solana.PublicKey) {
	return pool.TokenXMint, pool.TokenYMint
}

// Reserves returns the pool's X and Y token vault addresses.
func (pool *MeteoraDlmmPool) Reserves() (solana.PublicKey, solana.PublicKey) {
	return pool.reserveX, pool.reserveY
}

// DerivePositionPDA derives a DLMM position account's address, seeded on the
// pool and a caller-supplied base keypair (the same scheme
// `initializePosition` uses on-chain: one base key can back many positions,
// but the engine always mints a fresh one per open, mirroring the teacher's
// one-shot swap-demo style of never reusing state).
func DerivePositionPDA(pool solana.PublicKey, base solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte("position"), pool.Bytes(), base.Bytes()},
		MeteoraProgramID,
	)
}

// OpenPositionParams describes a new DLMM position over [LowerBinID, UpperBinID].
type OpenPositionParams struct {
	Owner       solana.PublicKey
	Base        solana.PublicKey
	LowerBinID  int32
	Width       int32
}

func (pool *MeteoraDlmmPool) BuildOpenPosition(ctx context.Context, p OpenPositionParams) ([]solana.Instruction, error) {
	position, _, err := DerivePositionPDA(pool.PoolId, p.Base)
	if err != nil {
		return nil, fmt.Errorf("derive position pda: %w", err)
	}

	inst := initializePositionInstruction{
		LowerBinID:       p.LowerBinID,
		Width:            p.Width,
		AccountMetaSlice: make(solana.AccountMetaSlice, 6),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	inst.AccountMetaSlice[0] = solana.NewAccountMeta(p.Base, false, true)
	inst.AccountMetaSlice[1] = solana.NewAccountMeta(position, true, false)
	inst.AccountMetaSlice[2] = solana.NewAccountMeta(pool.PoolId, false, false)
	inst.AccountMetaSlice[3] = solana.NewAccountMeta(p.Owner, false, true)
	inst.AccountMetaSlice[4] = solana.NewAccountMeta(solana.SystemProgramID, false, false)
	inst.AccountMetaSlice[5] = solana.NewAccountMeta(DeriveEventAuthorityPDA(), false, false)

	return []solana.Instruction{&inst}, nil
}

// AddLiquidityParams funds a position with a single spot-distribution
// deposit across [LowerBinID, UpperBinID]; curve/bidask weighting is not
// encoded.
type AddLiquidityParams struct {
	Owner                  solana.PublicKey
	Position                solana.PublicKey
	LowerBinID, UpperBinID  int32
	AmountX, AmountY        cosmath.Int
	UserTokenX, UserTokenY  solana.PublicKey
}

func (pool *MeteoraDlmmPool) BuildAddLiquidity(ctx context.Context, p AddLiquidityParams) ([]solana.Instruction, error) {
	lowerArrayIdx := BinIDToBinArrayIndex(p.LowerBinID)
	upperArrayIdx := BinIDToBinArrayIndex(p.UpperBinID)
	binArrayLower, err := DeriveBinArrayPDA(pool.PoolId, lowerArrayIdx)
	if err != nil {
		return nil, fmt.Errorf("derive lower bin array: %w", err)
	}
	binArrayUpper, err := DeriveBinArrayPDA(pool.PoolId, upperArrayIdx)
	if err != nil {
		return nil, fmt.Errorf("derive upper bin array: %w", err)
	}

	inst := addLiquidityInstruction{
		AmountX:          p.AmountX.Uint64(),
		AmountY:          p.AmountY.Uint64(),
		LowerBinID:       p.LowerBinID,
		UpperBinID:       p.UpperBinID,
		AccountMetaSlice: make(solana.AccountMetaSlice, 10),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	inst.AccountMetaSlice[0] = solana.NewAccountMeta(p.Position, true, false)
	inst.AccountMetaSlice[1] = solana.NewAccountMeta(pool.PoolId, true, false)
	inst.AccountMetaSlice[2] = solana.NewAccountMeta(binArrayLower, true, false)
	inst.AccountMetaSlice[3] = solana.NewAccountMeta(binArrayUpper, true, false)
	inst.AccountMetaSlice[4] = solana.NewAccountMeta(p.UserTokenX, true, false)
	inst.AccountMetaSlice[5] = solana.NewAccountMeta(p.UserTokenY, true, false)
	inst.AccountMetaSlice[6] = solana.NewAccountMeta(pool.reserveX, true, false)
	inst.AccountMetaSlice[7] = solana.NewAccountMeta(pool.reserveY, true, false)
	inst.AccountMetaSlice[8] = solana.NewAccountMeta(p.Owner, false, true)
	inst.AccountMetaSlice[9] = solana.NewAccountMeta(DeriveEventAuthorityPDA(), false, false)

	return []solana.Instruction{&inst}, nil
}

// RemoveLiquidityParams withdraws bpsToRemove/10000 of a position's
// liquidity from [LowerBinID, UpperBinID].
type RemoveLiquidityParams struct {
	Owner                  solana.PublicKey
	Position               solana.PublicKey
	LowerBinID, UpperBinID int32
	BpsToRemove            uint16
	UserTokenX, UserTokenY solana.PublicKey
}

func (pool *MeteoraDlmmPool) BuildRemoveLiquidity(ctx context.Context, p RemoveLiquidityParams) ([]solana.Instruction, error) {
	lowerArrayIdx := BinIDToBinArrayIndex(p.LowerBinID)
	upperArrayIdx := BinIDToBinArrayIndex(p.UpperBinID)
	binArrayLower, err := DeriveBinArrayPDA(pool.PoolId, lowerArrayIdx)
	if err != nil {
		return nil, fmt.Errorf("derive lower bin array: %w", err)
	}
	binArrayUpper, err := DeriveBinArrayPDA(pool.PoolId, upperArrayIdx)
	if err != nil {
		return nil, fmt.Errorf("derive upper bin array: %w", err)
	}

	inst := removeLiquidityInstruction{
		BpsToRemove:      p.BpsToRemove,
		LowerBinID:       p.LowerBinID,
		UpperBinID:       p.UpperBinID,
		AccountMetaSlice: make(solana.AccountMetaSlice, 10),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	inst.AccountMetaSlice[0] = solana.NewAccountMeta(p.Position, true, false)
	inst.AccountMetaSlice[1] = solana.NewAccountMeta(pool.PoolId, true, false)
	inst.AccountMetaSlice[2] = solana.NewAccountMeta(binArrayLower, true, false)
	inst.AccountMetaSlice[3] = solana.NewAccountMeta(binArrayUpper, true, false)
	inst.AccountMetaSlice[4] = solana.NewAccountMeta(p.UserTokenX, true, false)
	inst.AccountMetaSlice[5] = solana.NewAccountMeta(p.UserTokenY, true, false)
	inst.AccountMetaSlice[6] = solana.NewAccountMeta(pool.reserveX, true, false)
	inst.AccountMetaSlice[7] = solana.NewAccountMeta(pool.reserveY, true, false)
	inst.AccountMetaSlice[8] = solana.NewAccountMeta(p.Owner, false, true)
	inst.AccountMetaSlice[9] = solana.NewAccountMeta(DeriveEventAuthorityPDA(), false, false)

	return []solana.Instruction{&inst}, nil
}

// ClaimFeeParams identifies the position whose accrued swap fees to sweep.
type ClaimFeeParams struct {
	Owner                  solana.PublicKey
	Position               solana.PublicKey
	LowerBinID, UpperBinID int32
	UserTokenX, UserTokenY solana.PublicKey
}

func (pool *MeteoraDlmmPool) BuildClaimFee(ctx context.Context, p ClaimFeeParams) ([]solana.Instruction, error) {
	lowerArrayIdx := BinIDToBinArrayIndex(p.LowerBinID)
	upperArrayIdx := BinIDToBinArrayIndex(p.UpperBinID)
	binArrayLower, err := DeriveBinArrayPDA(pool.PoolId, lowerArrayIdx)
	if err != nil {
		return nil, fmt.Errorf("derive lower bin array: %w", err)
	}
	binArrayUpper, err := DeriveBinArrayPDA(pool.PoolId, upperArrayIdx)
	if err != nil {
		return nil, fmt.Errorf("derive upper bin array: %w", err)
	}

	inst := claimFeeInstruction{
		AccountMetaSlice: make(solana.AccountMetaSlice, 9),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	inst.AccountMetaSlice[0] = solana.NewAccountMeta(p.Position, true, false)
	inst.AccountMetaSlice[1] = solana.NewAccountMeta(pool.PoolId, true, false)
	inst.AccountMetaSlice[2] = solana.NewAccountMeta(binArrayLower, true, false)
	inst.AccountMetaSlice[3] = solana.NewAccountMeta(binArrayUpper, true, false)
	inst.AccountMetaSlice[4] = solana.NewAccountMeta(p.UserTokenX, true, false)
	inst.AccountMetaSlice[5] = solana.NewAccountMeta(p.UserTokenY, true, false)
	inst.AccountMetaSlice[6] = solana.NewAccountMeta(pool.reserveX, true, false)
	inst.AccountMetaSlice[7] = solana.NewAccountMeta(pool.reserveY, true, false)
	inst.AccountMetaSlice[8] = solana.NewAccountMeta(p.Owner, false, true)

	return []solana.Instruction{&inst}, nil
}

type initializePositionInstruction struct {
	bin.BaseVariant
	LowerBinID              int32
	Width                   int32
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (i *initializePositionInstruction) ProgramID() solana.PublicKey { return MeteoraProgramID }
func (i *initializePositionInstruction) Accounts() []*solana.AccountMeta {
	return i.AccountMetaSlice
}
func (i *initializePositionInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(anchor.GetDiscriminator("global", "initializePosition"))
	if err := binary.Write(buf, binary.LittleEndian, i.LowerBinID); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, i.Width); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type addLiquidityInstruction struct {
	bin.BaseVariant
	AmountX                 uint64
	AmountY                 uint64
	LowerBinID              int32
	UpperBinID              int32
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (i *addLiquidityInstruction) ProgramID() solana.PublicKey { return MeteoraProgramID }
func (i *addLiquidityInstruction) Accounts() []*solana.AccountMeta {
	return i.AccountMetaSlice
}
func (i *addLiquidityInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(anchor.GetDiscriminator("global", "addLiquidityByStrategy"))
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint64(i.AmountX, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(i.AmountY, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, i.LowerBinID); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, i.UpperBinID); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type removeLiquidityInstruction struct {
	bin.BaseVariant
	BpsToRemove             uint16
	LowerBinID              int32
	UpperBinID              int32
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (i *removeLiquidityInstruction) ProgramID() solana.PublicKey { return MeteoraProgramID }
func (i *removeLiquidityInstruction) Accounts() []*solana.AccountMeta {
	return i.AccountMetaSlice
}
func (i *removeLiquidityInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(anchor.GetDiscriminator("global", "removeLiquidityByRange"))
	if err := binary.Write(buf, binary.LittleEndian, i.LowerBinID); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, i.UpperBinID); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, i.BpsToRemove); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type claimFeeInstruction struct {
	bin.BaseVariant
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (i *claimFeeInstruction) ProgramID() solana.PublicKey { return MeteoraProgramID }
func (i *claimFeeInstruction) Accounts() []*solana.AccountMeta {
	return i.AccountMetaSlice
}
func (i *claimFeeInstruction) Data() ([]byte, error) {
	return anchor.GetDiscriminator("global", "claimFee2"), nil
}
