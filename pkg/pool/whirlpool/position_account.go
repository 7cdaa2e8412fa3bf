package whirlpool

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// PositionAccountSize is the fixed on-chain size of a Whirlpool Position
// account: discriminator + whirlpool + positionMint + liquidity + tick
// bounds + two fee checkpoints + three reward infos.
const PositionAccountSize = 216

// PositionAccount mirrors the Whirlpool program's Position account layout,
// decoded the same field-by-field way WhirlpoolPool.Decode reads the pool
// account.
type PositionAccount struct {
	Discriminator    [8]uint8
	Whirlpool        solana.PublicKey
	PositionMint     solana.PublicKey
	Liquidity        uint128.Uint128
	TickLowerIndex   int32
	TickUpperIndex   int32
	FeeGrowthCheckpointA uint128.Uint128
	FeeOwedA         uint64
	FeeGrowthCheckpointB uint128.Uint128
	FeeOwedB         uint64
}

func (p *PositionAccount) Decode(data []byte) error {
	if len(data) < PositionAccountSize {
		return fmt.Errorf("insufficient data: expected %d bytes, got %d", PositionAccountSize, len(data))
	}

	copy(p.Discriminator[:], data[0:8])
	p.Whirlpool = solana.PublicKeyFromBytes(data[8:40])
	p.PositionMint = solana.PublicKeyFromBytes(data[40:72])

	decoder := bin.NewBinDecoder(data[72:88])
	decoder.Decode(&p.Liquidity)
	decoder = bin.NewBinDecoder(data[88:92])
	decoder.Decode(&p.TickLowerIndex)
	decoder = bin.NewBinDecoder(data[92:96])
	decoder.Decode(&p.TickUpperIndex)
	decoder = bin.NewBinDecoder(data[96:112])
	decoder.Decode(&p.FeeGrowthCheckpointA)
	decoder = bin.NewBinDecoder(data[112:120])
	decoder.Decode(&p.FeeOwedA)
	decoder = bin.NewBinDecoder(data[120:136])
	decoder.Decode(&p.FeeGrowthCheckpointB)
	decoder = bin.NewBinDecoder(data[136:144])
	decoder.Decode(&p.FeeOwedB)

	return nil
}
