package whirlpool

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// tickArraySize is the number of ticks a Whirlpool tick-array account holds;
// fixed by the program, mirrors the Ticks [88]Tick field on TickArray.
const tickArraySize = 88

// TickArrayStartIndex rounds tick down to the start of the tick array that
// contains it, matching the program's own floor-division convention.
func TickArrayStartIndex(tick int32, tickSpacing uint16) int32 {
	ticksInArray := int32(tickSpacing) * tickArraySize
	if ticksInArray == 0 {
		return tick
	}
	q := tick / ticksInArray
	if tick%ticksInArray != 0 && tick < 0 {
		q--
	}
	return q * ticksInArray
}

func DeriveTickArrayPDA(whirlpool solana.PublicKey, startTickIndex int32) (solana.PublicKey, uint8, error) {
	seed := fmt.Sprintf("%d", startTickIndex)
	return solana.FindProgramAddress(
		[][]byte{[]byte("tick_array"), whirlpool.Bytes(), []byte(seed)},
		WhirlpoolProgramID,
	)
}

func DerivePositionPDA(positionMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte("position"), positionMint.Bytes()},
		WhirlpoolProgramID,
	)
}

func DeriveOraclePDA(whirlpool solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte("oracle"), whirlpool.Bytes()},
		WhirlpoolProgramID,
	)
}
