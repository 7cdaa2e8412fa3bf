package meteora

import (
	"encoding/binary"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/lp-engine/pkg/anchor"
)

// MeteoraProgramID is the mainnet Meteora DLMM program address.
var MeteoraProgramID = solana.MustPublicKeyFromBase58("LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo")

// MemoProgramID is the SPL memo program, referenced by the swap instruction's
// fixed account list but never written to by this engine.
var MemoProgramID = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")

// Swap2IxDiscm is the anchor instruction discriminator for "global:swap2".
var Swap2IxDiscm = func() (d [8]byte) {
	copy(d[:], anchor.GetDiscriminator("global", "swap2"))
	return
}()

// Fee and grid constants mirrored from the Meteora DLMM program.
const (
	FeePrecision  = 1_000_000_000
	BasisPointMax = 10_000
	MaxFeeRate    = 100_000_000 // 10% of FeePrecision

	MinBinID = -443_636
	MaxBinID = 443_636

	maxBinPerArray       = int32(70)
	binArrayBitmapSize   = int32(512) // default on-chain bitmap covers [-512, 511] array indices
	binArrayBitmapWidth  = 1024       // bits in the 16x uint64 on-chain bitmap
)

// Pair status / activation enums, mirrored from the on-chain account layout.
const (
	PairStatusEnabled  = 0
	PairStatusDisabled = 1

	PairTypePermissionless = 0
	PairTypePermission     = 1

	ActivationTypeSlot      = 0
	ActivationTypeTimestamp = 1
)

// BitmapDetail describes the bit width of a fixed-width bitmap window used by
// the default (non-extension) bin-array liquidity bitmap.
type BitmapDetail struct {
	Bits int
}

// BitmapTypeDetail returns the bit-width descriptor for a bitmap of the given
// total width. The only width this engine's default bitmap ever uses is
// binArrayBitmapWidth (U1024).
func BitmapTypeDetail(width int) BitmapDetail {
	return BitmapDetail{Bits: width}
}

// U1024 is the bit width of the pool's inline binArrayBitmap field.
const U1024 = binArrayBitmapWidth

// BitmapRange returns the inclusive range of bin-array indices the default,
// inline bitmap covers.
func BitmapRange() (int32, int32) {
	return -binArrayBitmapSize, binArrayBitmapSize - 1
}

// FromLimbs reconstructs a big.Int from the pool's little-limb-ordered
// on-chain bitmap ([16]uint64, least-significant limb first).
func FromLimbs(limbs []uint64) *big.Int {
	words := make([]big.Word, len(limbs))
	for i, l := range limbs {
		words[i] = big.Word(l)
	}
	return new(big.Int).SetBits(words)
}

// GetBinArrayOffset converts a bin-array index into its bit offset within the
// default bitmap window.
func GetBinArrayOffset(arrayIndex int32) int32 {
	minID, _ := BitmapRange()
	return arrayIndex - minID
}

// IsOverflowDefaultBinArrayBitmap reports whether a bin-array index falls
// outside the range the inline bitmap covers, requiring the bitmap-extension
// account instead.
func IsOverflowDefaultBinArrayBitmap(arrayIndex int32) bool {
	minID, maxID := BitmapRange()
	return arrayIndex < minID || arrayIndex > maxID
}

// MostSignificantBit returns the position (counted from the top of a
// bits-wide window) of the highest set bit, or -1 if x is zero.
func MostSignificantBit(x *big.Int, bits int) int {
	for i := bits - 1; i >= 0; i-- {
		if x.Bit(i) != 0 {
			return bits - 1 - i
		}
	}
	return -1
}

// LeastSignificantBit returns the position of the lowest set bit within a
// bits-wide window, or -1 if x is zero.
func LeastSignificantBit(x *big.Int, bits int) int {
	for i := 0; i < bits; i++ {
		if x.Bit(i) != 0 {
			return i
		}
	}
	return -1
}

// BinIDToBinArrayIndex floors a bin id to its owning bin-array index.
func BinIDToBinArrayIndex(binID int32) int64 {
	idx := binID / maxBinPerArray
	if binID%maxBinPerArray != 0 && (binID < 0) != (maxBinPerArray < 0) {
		idx--
	}
	return int64(idx)
}

// GetBinArrayLowerUpperBinID returns the inclusive bin-id bounds owned by a
// bin-array index.
func GetBinArrayLowerUpperBinID(arrayIndex int32) (int32, int32, error) {
	lower := arrayIndex * maxBinPerArray
	upper := lower + maxBinPerArray - 1
	return lower, upper, nil
}

// DeriveBinArrayPDA derives the program address of the bin array covering the
// given bin-array index for a pool.
func DeriveBinArrayPDA(poolID solana.PublicKey, arrayIndex int64) (solana.PublicKey, error) {
	idxBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(idxBytes, uint64(arrayIndex))
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("bin_array"), poolID.Bytes(), idxBytes},
		MeteoraProgramID,
	)
	return pda, err
}

// DeriveBinArrayBitmapExtension derives the address of a pool's
// bitmap-extension account, used once the default inline bitmap is
// exhausted.
func DeriveBinArrayBitmapExtension(poolID solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("bitmap"), poolID.Bytes()},
		MeteoraProgramID,
	)
	return pda, err
}

// DeriveEventAuthorityPDA derives the program's anchor event-authority
// account, a fixed account referenced by every swap instruction.
func DeriveEventAuthorityPDA() solana.PublicKey {
	pda, _, _ := solana.FindProgramAddress(
		[][]byte{[]byte("__event_authority")},
		MeteoraProgramID,
	)
	return pda
}

// BinArrayBitmapExtension mirrors the overflow bitmap account a pool
// allocates once its active range has drifted outside the inline
// binArrayBitmap window. The engine only needs forward/backward liquidity
// scanning over it, not full decode of every reserved field.
type BinArrayBitmapExtension struct {
	PoolID                  solana.PublicKey
	PositiveBinArrayBitmap  [][binArrayBitmapWidth / 64]uint64
	NegativeBinArrayBitmap  [][binArrayBitmapWidth / 64]uint64
}

// NextBinArrayIndexWithLiquidity scans the extension bitmap for the next
// populated bin-array index in the swap direction, starting at
// startArrayIndex. It reports (nextIndex, hasLiquidity, error); when no
// further populated array exists in the extension range it returns
// hasLiquidity=false with the boundary index so callers can fall back or
// terminate the scan.
func (ext *BinArrayBitmapExtension) NextBinArrayIndexWithLiquidity(swapForY bool, startArrayIndex int32) (int32, bool, error) {
	_, maxDefault := BitmapRange()
	if swapForY {
		for i := startArrayIndex; i >= -maxDefault*2; i-- {
			if ext.isSet(i) {
				return i, true, nil
			}
		}
		return -maxDefault*2 - 1, false, nil
	}
	for i := startArrayIndex; i <= maxDefault*2; i++ {
		if ext.isSet(i) {
			return i, true, nil
		}
	}
	return maxDefault*2 + 1, false, nil
}

func (ext *BinArrayBitmapExtension) isSet(arrayIndex int32) bool {
	_, maxDefault := BitmapRange()
	var page [][binArrayBitmapWidth / 64]uint64
	var offset int32
	if arrayIndex >= 0 {
		page = ext.PositiveBinArrayBitmap
		offset = arrayIndex - (maxDefault + 1)
	} else {
		page = ext.NegativeBinArrayBitmap
		offset = -arrayIndex - (maxDefault + 1)
	}
	if offset < 0 {
		return false
	}
	pageIdx := int(offset) / binArrayBitmapWidth
	bitIdx := int(offset) % binArrayBitmapWidth
	if pageIdx >= len(page) {
		return false
	}
	limb := bitIdx / 64
	bit := bitIdx % 64
	return page[pageIdx][limb]&(1<<uint(bit)) != 0
}
