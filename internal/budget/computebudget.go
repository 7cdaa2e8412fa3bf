package budget

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/lp-engine/pkg/sol"
)

// The compute-budget native program takes no accounts; each instruction is
// a one-byte tag followed by its little-endian payload. Tags 2 and 3 are
// the program's stable, documented SetComputeUnitLimit/SetComputeUnitPrice
// discriminators.
const (
	tagSetComputeUnitLimit uint8 = 2
	tagSetComputeUnitPrice uint8 = 3
)

type computeBudgetInstruction struct {
	data []byte
}

func (i *computeBudgetInstruction) ProgramID() solana.PublicKey       { return sol.ComputeBudgetProgramID }
func (i *computeBudgetInstruction) Accounts() []*solana.AccountMeta   { return nil }
func (i *computeBudgetInstruction) Data() ([]byte, error)             { return i.data, nil }

func newSetComputeUnitLimit(units uint32) solana.Instruction {
	data := make([]byte, 5)
	data[0] = tagSetComputeUnitLimit
	binary.LittleEndian.PutUint32(data[1:], units)
	return &computeBudgetInstruction{data: data}
}

func newSetComputeUnitPrice(microLamports uint64) solana.Instruction {
	data := make([]byte, 9)
	data[0] = tagSetComputeUnitPrice
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return &computeBudgetInstruction{data: data}
}
