package whirlpool

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"

	cosmath "cosmossdk.io/math"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/solana-zh/lp-engine/pkg/anchor"
	"github.com/solana-zh/lp-engine/pkg/sol"
)

// BuildSwapInstructions builds a single-hop Whirlpool swap using the three
// tick arrays straddling the pool's current tick, matching the account
// ordering of Orca's "swap" instruction.
func (pool *WhirlpoolPool) BuildSwapInstructions(
	ctx context.Context,
	solClient *sol.Client,
	user solana.PublicKey,
	inputMint string,
	inputAmount cosmath.Int,
	minOutputAmount cosmath.Int,
	userBaseAccount solana.PublicKey,
	userQuoteAccount solana.PublicKey,
) ([]solana.Instruction, error) {
	aToB := inputMint == pool.TokenMintA.String()

	tickArrays, err := pool.surroundingTickArrays(aToB)
	if err != nil {
		return nil, fmt.Errorf("derive tick arrays: %w", err)
	}

	oracle, _, err := DeriveOraclePDA(pool.PoolId)
	if err != nil {
		return nil, fmt.Errorf("derive oracle pda: %w", err)
	}

	inst := swapInstruction{
		Amount:                 inputAmount.Uint64(),
		OtherAmountThreshold:   minOutputAmount.Uint64(),
		SqrtPriceLimit:         sqrtPriceLimit(aToB),
		AmountSpecifiedIsInput: true,
		AToB:                   aToB,
		AccountMetaSlice:       make(solana.AccountMetaSlice, 11),
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	inst.AccountMetaSlice[0] = solana.NewAccountMeta(sol.TokenProgramID, false, false)
	inst.AccountMetaSlice[1] = solana.NewAccountMeta(user, false, true)
	inst.AccountMetaSlice[2] = solana.NewAccountMeta(pool.PoolId, true, false)
	inst.AccountMetaSlice[3] = solana.NewAccountMeta(userBaseAccount, true, false)
	inst.AccountMetaSlice[4] = solana.NewAccountMeta(pool.TokenVaultA, true, false)
	inst.AccountMetaSlice[5] = solana.NewAccountMeta(userQuoteAccount, true, false)
	inst.AccountMetaSlice[6] = solana.NewAccountMeta(pool.TokenVaultB, true, false)
	inst.AccountMetaSlice[7] = solana.NewAccountMeta(tickArrays[0], true, false)
	inst.AccountMetaSlice[8] = solana.NewAccountMeta(tickArrays[1], true, false)
	inst.AccountMetaSlice[9] = solana.NewAccountMeta(tickArrays[2], true, false)
	inst.AccountMetaSlice[10] = solana.NewAccountMeta(oracle, false, false)

	return []solana.Instruction{&inst}, nil
}

// surroundingTickArrays returns the PDAs for the tick array holding the
// pool's current tick plus its two downstream neighbours in the swap
// direction, the minimum set the program needs to walk a single-hop swap.
func (pool *WhirlpoolPool) surroundingTickArrays(aToB bool) ([3]solana.PublicKey, error) {
	var out [3]solana.PublicKey
	start := TickArrayStartIndex(pool.TickCurrentIndex, pool.TickSpacing)
	step := int32(pool.TickSpacing) * tickArraySize
	if !aToB {
		step = -step
	}
	for i := 0; i < 3; i++ {
		pda, _, err := DeriveTickArrayPDA(pool.PoolId, start-int32(i)*step)
		if err != nil {
			return out, err
		}
		out[i] = pda
	}
	return out, nil
}

func sqrtPriceLimit(aToB bool) uint128.Uint128 {
	if aToB {
		return uint128.From64(4295048016) // MIN_SQRT_PRICE
	}
	return uint128.New(math.MaxUint64, math.MaxUint64) // program clamps to MAX_SQRT_PRICE internally for any overshoot
}

type swapInstruction struct {
	bin.BaseVariant
	Amount                  uint64
	OtherAmountThreshold    uint64
	SqrtPriceLimit          uint128.Uint128
	AmountSpecifiedIsInput  bool
	AToB                    bool
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (i *swapInstruction) ProgramID() solana.PublicKey { return WhirlpoolProgramID }
func (i *swapInstruction) Accounts() []*solana.AccountMeta {
	return i.AccountMetaSlice
}
func (i *swapInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(anchor.GetDiscriminator("global", "swap"))
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint64(i.Amount, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(i.OtherAmountThreshold, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(i.SqrtPriceLimit.Lo, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(i.SqrtPriceLimit.Hi, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(i.AmountSpecifiedIsInput); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(i.AToB); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
