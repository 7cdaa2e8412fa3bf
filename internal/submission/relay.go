package submission

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/pkg/sol"
)

// JitoRelay adapts *sol.Client's jito.go/send.go methods to the Relay
// boundary Driver depends on: Relay's argument order and naming is the
// composer's own, not the wrapped client's.
type JitoRelay struct {
	client *sol.Client
}

func NewJitoRelay(client *sol.Client) *JitoRelay {
	return &JitoRelay{client: client}
}

func (r *JitoRelay) SubmitBundle(ctx context.Context, signers []solana.PrivateKey, tipAmount uint64, tx *solana.Transaction) (string, error) {
	return r.client.SendTxWithJito(ctx, tipAmount, signers, tx)
}

func (r *JitoRelay) WaitForBundle(ctx context.Context, bundleID string, timeout time.Duration) (sol.BundleOutcome, error) {
	return r.client.WaitForBundle(ctx, bundleID, timeout)
}
