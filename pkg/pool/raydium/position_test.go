package raydium

import (
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestDeriveProtocolPositionPDADeterministic(t *testing.T) {
	pool := solana.MustPublicKeyFromBase58("2QdhepnKRTLjjSqPL1PtKNwqrUkoLee5Gqs8bvZhRdMv")
	a, _, err := DeriveProtocolPositionPDA(pool, -100, 100)
	if err != nil {
		t.Fatalf("DeriveProtocolPositionPDA: %v", err)
	}
	b, _, err := DeriveProtocolPositionPDA(pool, -100, 100)
	if err != nil {
		t.Fatalf("DeriveProtocolPositionPDA: %v", err)
	}
	if a != b {
		t.Fatalf("expected deterministic PDA, got %s and %s", a, b)
	}

	other, _, err := DeriveProtocolPositionPDA(pool, -200, 100)
	if err != nil {
		t.Fatalf("DeriveProtocolPositionPDA: %v", err)
	}
	if a == other {
		t.Fatalf("expected different tick ranges to derive different PDAs")
	}
}

func TestDerivePersonalPositionPDADeterministic(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	a, _, err := DerivePersonalPositionPDA(mint)
	if err != nil {
		t.Fatalf("DerivePersonalPositionPDA: %v", err)
	}
	b, _, err := DerivePersonalPositionPDA(mint)
	if err != nil {
		t.Fatalf("DerivePersonalPositionPDA: %v", err)
	}
	if a != b {
		t.Fatalf("expected deterministic PDA, got %s and %s", a, b)
	}
}
