package budget

import (
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestPrependComputeBudgetInstructionsDedupes(t *testing.T) {
	stale := newSetComputeUnitLimit(1)
	other := &computeBudgetInstruction{data: []byte{9}}
	_ = other

	existing := []solana.Instruction{stale}
	out := PrependComputeBudgetInstructions(existing, Estimate{ComputeUnitLimit: 200_000, PriorityFeeMicroLamports: 5000})

	if len(out) != 2 {
		t.Fatalf("expected exactly 2 instructions (limit+price), got %d", len(out))
	}
	if out[0].ProgramID() != out[1].ProgramID() {
		t.Fatalf("both compute-budget instructions should target the same program")
	}
}

func TestPercentileForUrgency(t *testing.T) {
	cases := map[Urgency]int{Low: 25, Medium: 50, High: 75, Critical: 90}
	for u, want := range cases {
		if got := percentileFor(u); got != want {
			t.Errorf("percentileFor(%s) = %d, want %d", u, got, want)
		}
	}
}
