package meteora

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// maxBinsPerPosition is the program's fixed bin-array width for one
// PositionV2 account.
const maxBinsPerPosition = 70

const (
	feeInfoSize      = 48 // feeXPerTokenComplete(16) + feeYPerTokenComplete(16) + feeXPending(8) + feeYPending(8)
	rewardInfoSize   = 48 // rewardPerTokenCompletes[2](32) + rewardPendings[2](16)
	liquidityShareSz = 8
)

// positionHeaderSize covers the discriminator, LbPair and Owner, the bytes
// before the per-bin arrays; LowerBinID/UpperBinID follow those arrays.
const positionHeaderSize = 8 + 32 + 32
const positionBinArraysSize = maxBinsPerPosition*liquidityShareSz + maxBinsPerPosition*rewardInfoSize + maxBinsPerPosition*feeInfoSize

// PositionAccount mirrors the Meteora DLMM PositionV2 account. FeeOwedX and
// FeeOwedY are the sum of each bin's pending fee across the position's
// range, decoded the same manual-offset way MeteoraDlmmPool.Decode reads the
// pool account.
type PositionAccount struct {
	LbPair     solana.PublicKey
	Owner      solana.PublicKey
	LowerBinID int32
	UpperBinID int32
	FeeOwedX   uint64
	FeeOwedY   uint64
}

func (p *PositionAccount) Decode(data []byte) error {
	minSize := positionHeaderSize + positionBinArraysSize + 8
	if len(data) < minSize {
		return fmt.Errorf("insufficient data: expected at least %d bytes, got %d", minSize, len(data))
	}

	offset := 8
	p.LbPair = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32

	p.Owner = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32

	// skip liquidityShares and rewardInfos arrays
	offset += maxBinsPerPosition * liquidityShareSz
	offset += maxBinsPerPosition * rewardInfoSize

	var feeX, feeY uint64
	for i := 0; i < maxBinsPerPosition; i++ {
		binOffset := offset + i*feeInfoSize
		feeX += binary.LittleEndian.Uint64(data[binOffset+32 : binOffset+40])
		feeY += binary.LittleEndian.Uint64(data[binOffset+40 : binOffset+48])
	}
	p.FeeOwedX = feeX
	p.FeeOwedY = feeY
	offset += maxBinsPerPosition * feeInfoSize

	p.LowerBinID = int32(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4
	p.UpperBinID = int32(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4

	return nil
}
