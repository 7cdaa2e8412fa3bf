package raydium

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// personalPositionRewardInfoSize is the per-reward-tier slice of a
// PersonalPositionState account: growthInsideLastX64 (u128) + amountOwed (u64).
const personalPositionRewardInfoSize = 24

// PersonalPositionAccountSize is the fixed size of a CLMM PersonalPositionState
// account: header fields plus three reward-tier slices and a trailing epoch.
const PersonalPositionAccountSize = 225

// PersonalPositionAccount mirrors the Raydium CLMM PersonalPositionState
// account, decoded field-by-field the same way CLMMPool.Decode reads the
// pool account.
type PersonalPositionAccount struct {
	Bump                    uint8
	NftMint                 solana.PublicKey
	PoolId                  solana.PublicKey
	TickLowerIndex          int32
	TickUpperIndex          int32
	Liquidity               uint128.Uint128
	FeeGrowthInside0LastX64 uint128.Uint128
	FeeGrowthInside1LastX64 uint128.Uint128
	TokenFeesOwed0          uint64
	TokenFeesOwed1          uint64
}

func (p *PersonalPositionAccount) Decode(data []byte) error {
	if len(data) > 8 {
		data = data[8:]
	}
	if len(data) < PersonalPositionAccountSize-8 {
		return fmt.Errorf("insufficient data: expected at least %d bytes, got %d", PersonalPositionAccountSize-8, len(data))
	}

	offset := 0
	p.Bump = data[offset]
	offset += 1

	p.NftMint = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32

	p.PoolId = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32

	p.TickLowerIndex = int32(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4

	p.TickUpperIndex = int32(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4

	p.Liquidity = uint128.FromBytes(data[offset : offset+16])
	offset += 16

	p.FeeGrowthInside0LastX64 = uint128.FromBytes(data[offset : offset+16])
	offset += 16

	p.FeeGrowthInside1LastX64 = uint128.FromBytes(data[offset : offset+16])
	offset += 16

	p.TokenFeesOwed0 = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8

	p.TokenFeesOwed1 = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8

	return nil
}
