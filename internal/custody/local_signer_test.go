package custody

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/solana-zh/lp-engine/internal/errs"
)

func TestSignRefusesUnknownWallet(t *testing.T) {
	signer := NewLocalSigner(nil, nil)
	unknown := solana.NewWallet().PublicKey()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1, unknown, unknown).Build()},
		solana.Hash{},
		solana.TransactionPayer(unknown),
	)
	if err != nil {
		t.Fatalf("build tx: %v", err)
	}

	_, err = signer.Sign(context.Background(), unknown, tx)
	if errs.KindOf(err) != errs.SignRefused {
		t.Fatalf("expected SIGN_REFUSED for unheld wallet, got %v", err)
	}
}

func TestSignSucceedsForHeldKey(t *testing.T) {
	wallet := solana.NewWallet()
	signer := NewLocalSigner(nil, []solana.PrivateKey{wallet.PrivateKey})

	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1, wallet.PublicKey(), wallet.PublicKey()).Build()},
		solana.Hash{},
		solana.TransactionPayer(wallet.PublicKey()),
	)
	if err != nil {
		t.Fatalf("build tx: %v", err)
	}

	signed, err := signer.Sign(context.Background(), wallet.PublicKey(), tx)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(signed.Signatures) == 0 {
		t.Fatalf("expected at least one signature after signing")
	}
}
