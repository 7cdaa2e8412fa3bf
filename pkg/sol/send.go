package sol

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

func (c *Client) SendTx(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	// Send transaction with optimized options
	sig, err := c.SendTransactionWithOpts(
		ctx, tx,
		rpc.TransactionOpts{
			SkipPreflight:       true,
			PreflightCommitment: rpc.CommitmentProcessed,
		},
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}

// SendTxWithJito submits mainTx and a tip transfer to signers[0]'s tip
// account as a single Jito bundle and returns the bundle ID. It no longer
// blocks on the bundle's outcome itself (the old CheckBundleStatus loop
// printed status lines to stdout and returned nothing): callers that need
// to know the outcome poll it separately via the JitoClient's
// WaitForBundle, which internal/submission does as part of its retry loop.
func (c *Client) SendTxWithJito(ctx context.Context, jitoTipAmount uint64, signers []solana.PrivateKey, mainTx *solana.Transaction) (string, error) {
	res, err := c.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get blockhash: %w", err)
	}

	tipTx, err := createTipTransaction(signers[0], jitoTipAmount, res.Value.Blockhash, c.jitoClient.tipAccount.String())
	if err != nil {
		return "", fmt.Errorf("failed to create tip transaction: %w", err)
	}

	bundleRequest := [][]string{{
		encodeTransaction(mainTx),
		encodeTransaction(tipTx),
	}}

	bundleIdRaw, err := c.jitoClient.rpcClient.SendBundle(bundleRequest)
	if err != nil {
		return "", fmt.Errorf("failed to send bundle: %w", err)
	}
	var bundleId string
	if err := json.Unmarshal(bundleIdRaw, &bundleId); err != nil {
		return "", fmt.Errorf("failed to unmarshal bundle ID: %w", err)
	}

	return bundleId, nil
}

// WaitForBundle exposes the client's JitoClient.WaitForBundle so callers
// holding only a *Client (not the JitoClient itself) can poll a bundle's
// outcome.
func (c *Client) WaitForBundle(ctx context.Context, bundleId string, timeout time.Duration) (BundleOutcome, error) {
	return c.jitoClient.WaitForBundle(ctx, bundleId, timeout)
}
