// Package submission implements the Submission Driver (C6): two modes for
// getting a signed transaction list on-chain, directly grounded on the
// teacher's pkg/sol/jito.go and send.go (SendTxWithJito, the old
// CheckBundleStatus poll loop now generalized into sol.Client.WaitForBundle).
package submission

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/custody"
	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/pkg/sol"
)

const (
	bundleWaitTimeout = 60 * time.Second
	maxBundleRetries  = 2
	retryBackoffBase  = 2 * time.Second
	sequentialDelay   = 3 * time.Second
)

// Outcome is the overall result of a submission attempt.
type Outcome struct {
	BundleID      string
	Signatures    []solana.Signature
	BundleOutcome sol.BundleOutcome
	PartialCount  int // how many transactions landed before a sequential-mode abort
}

// Relay is the bundle-submission boundary, backed by *sol.Client in
// production.
type Relay interface {
	SubmitBundle(ctx context.Context, signers []solana.PrivateKey, tipAmount uint64, tx *solana.Transaction) (string, error)
	WaitForBundle(ctx context.Context, bundleID string, timeout time.Duration) (sol.BundleOutcome, error)
}

// Driver submits a composer's transaction list either as one atomic bundle
// (private relay) or sequentially (direct RPC).
type Driver struct {
	client *sol.Client
	relay  Relay
	signer custody.Oracle
}

func New(client *sol.Client, relay Relay, signer custody.Oracle) *Driver {
	return &Driver{client: client, relay: relay, signer: signer}
}

// SubmitBundle signs tx once through the custody oracle, submits it as an
// atomic Jito bundle (the tip transaction is appended by the relay itself),
// and polls for its outcome. It takes a single transaction; a multi-
// transaction list is not bundled here. DROPPED and transient relay errors
// retry up to maxBundleRetries times with exponential backoff.
func (d *Driver) SubmitBundle(ctx context.Context, wallet solana.PublicKey, signers []solana.PrivateKey, tipAmount uint64, tx *solana.Transaction) (Outcome, error) {
	signed, err := d.signer.Sign(ctx, wallet, tx)
	if err != nil {
		return Outcome{}, err
	}

	var lastErr error
	for attempt := 0; attempt <= maxBundleRetries; attempt++ {
		if attempt > 0 {
			backoff := retryBackoffBase * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return Outcome{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		bundleID, err := d.relay.SubmitBundle(ctx, signers, tipAmount, signed)
		if err != nil {
			lastErr = err
			if isTransient(err) {
				continue
			}
			return Outcome{}, errs.Wrap(errs.BundleDropped, "submit bundle", err)
		}

		result, err := d.relay.WaitForBundle(ctx, bundleID, bundleWaitTimeout)
		if err != nil {
			lastErr = err
			if isTransient(err) {
				continue
			}
			return Outcome{BundleID: bundleID}, errs.Wrap(errs.Internal, "wait for bundle", err)
		}

		switch result {
		case sol.BundleLanded:
			return Outcome{BundleID: bundleID, BundleOutcome: result}, nil
		case sol.BundleDropped:
			lastErr = errs.New(errs.BundleDropped, "bundle dropped")
			continue
		case sol.BundleFailed:
			return Outcome{BundleID: bundleID, BundleOutcome: result}, errs.New(errs.Internal, "bundle failed on-chain")
		}
	}

	if lastErr == nil {
		lastErr = errs.New(errs.BundleDropped, "bundle dropped after retries")
	}
	return Outcome{}, errs.Wrap(errs.BundleDropped, "bundle dropped after retries", lastErr)
}

// SubmitSequential signs and sends each transaction one at a time through
// the custody oracle's SignAndSend, sleeping sequentialDelay before the
// next. It does not wait for a confirmation from the node; only an error
// returned by SignAndSend counts as a failure, which aborts the remainder
// and returns the partial
// set of signatures already sent. The tip transaction is never appended:
// sequential mode omits tips entirely.
func (d *Driver) SubmitSequential(ctx context.Context, wallet solana.PublicKey, txs []*solana.Transaction) (Outcome, error) {
	sigs := make([]solana.Signature, 0, len(txs))

	for i, tx := range txs {
		sig, err := d.signer.SignAndSend(ctx, wallet, tx)
		if err != nil {
			return Outcome{Signatures: sigs, PartialCount: len(sigs)}, errs.Wrap(errs.Internal, "sequential submission failed", err)
		}
		sigs = append(sigs, sig)

		if i < len(txs)-1 {
			select {
			case <-ctx.Done():
				return Outcome{Signatures: sigs, PartialCount: len(sigs)}, ctx.Err()
			case <-time.After(sequentialDelay):
			}
		}
	}

	return Outcome{Signatures: sigs, PartialCount: len(sigs)}, nil
}

// isTransient classifies an error as one the bundle-mode retry loop
// absorbs: an error whose errs.Kind is Retryable (VENUE_UNAVAILABLE,
// RPC_UNAVAILABLE, BUNDLE_DROPPED, BUNDLE_TIMEOUT, SLIPPAGE_EXCEEDED).
// Errors carrying no errs.Kind, such as the plain errors JitoRelay passes
// through from the relay client, count as INTERNAL and are terminal.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	k := errs.KindOf(err)
	return errs.Retryable(k)
}
