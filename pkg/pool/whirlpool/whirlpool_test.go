package whirlpool

import (
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestTickArrayStartIndexFloors(t *testing.T) {
	cases := []struct {
		tick    int32
		spacing uint16
		want    int32
	}{
		{tick: 0, spacing: 64, want: 0},
		{tick: 100, spacing: 64, want: 0},
		{tick: 5632, spacing: 64, want: 5632}, // exactly one array width (64*88)
		{tick: -100, spacing: 64, want: -5632},
	}
	for _, c := range cases {
		if got := TickArrayStartIndex(c.tick, c.spacing); got != c.want {
			t.Errorf("TickArrayStartIndex(%d, %d) = %d, want %d", c.tick, c.spacing, got, c.want)
		}
	}
}

func TestDeriveTickArrayPDADeterministic(t *testing.T) {
	pool := solana.MustPublicKeyFromBase58("2QdhepnKRTLjjSqPL1PtKNwqrUkoLee5Gqs8bvZhRdMv")
	a, _, err := DeriveTickArrayPDA(pool, 0)
	if err != nil {
		t.Fatalf("DeriveTickArrayPDA: %v", err)
	}
	b, _, err := DeriveTickArrayPDA(pool, 0)
	if err != nil {
		t.Fatalf("DeriveTickArrayPDA: %v", err)
	}
	if a != b {
		t.Fatalf("expected deterministic PDA, got %s and %s", a, b)
	}
}
