package meteora

import (
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestDerivePositionPDADeterministic(t *testing.T) {
	pool := solana.MustPublicKeyFromBase58("2QdhepnKRTLjjSqPL1PtKNwqrUkoLee5Gqs8bvZhRdMv")
	base := solana.NewWallet().PublicKey()

	a, _, err := DerivePositionPDA(pool, base)
	if err != nil {
		t.Fatalf("DerivePositionPDA: %v", err)
	}
	b, _, err := DerivePositionPDA(pool, base)
	if err != nil {
		t.Fatalf("DerivePositionPDA: %v", err)
	}
	if a != b {
		t.Fatalf("expected deterministic PDA, got %s and %s", a, b)
	}
}

func TestBinIDToBinArrayIndexMonotonic(t *testing.T) {
	if BinIDToBinArrayIndex(0) != BinIDToBinArrayIndex(1) {
		t.Fatalf("adjacent bins 0 and 1 should share an array index")
	}
	if BinIDToBinArrayIndex(-1) == BinIDToBinArrayIndex(1) {
		t.Fatalf("bins on either side of zero should not share an array index")
	}
}
