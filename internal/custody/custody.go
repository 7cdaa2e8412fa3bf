// Package custody defines the wallet-signing boundary (the "custody
// oracle" of SPEC_FULL.md §6): every transaction the pipeline composer
// builds is signed through this interface rather than by holding private
// keys inline in the composer itself, so a production deployment can swap
// in an out-of-process signer (HSM, MPC, remote oracle) without touching
// the pipeline.
package custody

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Oracle is the signing boundary. Sign returns a signed, serialized
// transaction; SignAndSend additionally submits it and returns the
// resulting signature, for the sequential submission path (§4.6) which
// signs and sends one transaction at a time.
type Oracle interface {
	Sign(ctx context.Context, wallet solana.PublicKey, unsignedTx *solana.Transaction) (*solana.Transaction, error)
	SignAndSend(ctx context.Context, wallet solana.PublicKey, unsignedTx *solana.Transaction) (solana.Signature, error)
}
