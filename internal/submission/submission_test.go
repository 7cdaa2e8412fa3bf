package submission

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/pkg/sol"
)

type fakeSigner struct {
	sendSig solana.Signature
	sendErr error
}

func (f fakeSigner) Sign(ctx context.Context, wallet solana.PublicKey, tx *solana.Transaction) (*solana.Transaction, error) {
	return tx, nil
}

func (f fakeSigner) SignAndSend(ctx context.Context, wallet solana.PublicKey, tx *solana.Transaction) (solana.Signature, error) {
	return f.sendSig, f.sendErr
}

type fakeRelay struct {
	submitCalls int
	submitErrs  []error
	waitOutcome []sol.BundleOutcome
	waitErrs    []error
}

func (f *fakeRelay) SubmitBundle(ctx context.Context, signers []solana.PrivateKey, tipAmount uint64, tx *solana.Transaction) (string, error) {
	i := f.submitCalls
	f.submitCalls++
	if i < len(f.submitErrs) && f.submitErrs[i] != nil {
		return "", f.submitErrs[i]
	}
	return "bundle-id", nil
}

func (f *fakeRelay) WaitForBundle(ctx context.Context, bundleID string, timeout time.Duration) (sol.BundleOutcome, error) {
	i := f.submitCalls - 1
	if i < len(f.waitErrs) && f.waitErrs[i] != nil {
		return "", f.waitErrs[i]
	}
	if i < len(f.waitOutcome) {
		return f.waitOutcome[i], nil
	}
	return sol.BundleLanded, nil
}

func testTx(t *testing.T) *solana.Transaction {
	t.Helper()
	wallet := solana.NewWallet().PublicKey()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1, wallet, wallet).Build()},
		solana.Hash{},
		solana.TransactionPayer(wallet),
	)
	if err != nil {
		t.Fatalf("build tx: %v", err)
	}
	return tx
}

func TestSubmitBundleSucceedsOnFirstTry(t *testing.T) {
	relay := &fakeRelay{waitOutcome: []sol.BundleOutcome{sol.BundleLanded}}
	driver := New(nil, relay, fakeSigner{})

	outcome, err := driver.SubmitBundle(context.Background(), solana.NewWallet().PublicKey(), nil, 1000, testTx(t))
	if err != nil {
		t.Fatalf("SubmitBundle: %v", err)
	}
	if outcome.BundleOutcome != sol.BundleLanded {
		t.Fatalf("expected landed outcome, got %v", outcome.BundleOutcome)
	}
	if relay.submitCalls != 1 {
		t.Fatalf("expected exactly 1 submit call, got %d", relay.submitCalls)
	}
}

func TestSubmitBundleRetriesOnDroppedThenLands(t *testing.T) {
	relay := &fakeRelay{waitOutcome: []sol.BundleOutcome{sol.BundleDropped, sol.BundleLanded}}
	driver := New(nil, relay, fakeSigner{})

	start := time.Now()
	outcome, err := driver.SubmitBundle(context.Background(), solana.NewWallet().PublicKey(), nil, 1000, testTx(t))
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("SubmitBundle: %v", err)
	}
	if outcome.BundleOutcome != sol.BundleLanded {
		t.Fatalf("expected eventual landed outcome, got %v", outcome.BundleOutcome)
	}
	if relay.submitCalls != 2 {
		t.Fatalf("expected 2 submit calls (1 retry), got %d", relay.submitCalls)
	}
	if elapsed < retryBackoffBase {
		t.Fatalf("expected at least one backoff delay, elapsed %v", elapsed)
	}
}

func TestSubmitBundleExhaustsRetriesOnRepeatedDrops(t *testing.T) {
	relay := &fakeRelay{waitOutcome: []sol.BundleOutcome{sol.BundleDropped, sol.BundleDropped, sol.BundleDropped}}
	driver := New(nil, relay, fakeSigner{})

	_, err := driver.SubmitBundle(context.Background(), solana.NewWallet().PublicKey(), nil, 1000, testTx(t))
	if errs.KindOf(err) != errs.BundleDropped {
		t.Fatalf("expected BUNDLE_DROPPED after exhausting retries, got %v", err)
	}
	if relay.submitCalls != maxBundleRetries+1 {
		t.Fatalf("expected %d submit calls, got %d", maxBundleRetries+1, relay.submitCalls)
	}
}

func TestSubmitSequentialAbortsOnFailureAndReturnsPartial(t *testing.T) {
	signer := fakeSigner{sendErr: errs.New(errs.Internal, "on-chain failure")}
	driver := New(nil, nil, signer)

	txs := []*solana.Transaction{testTx(t), testTx(t)}
	outcome, err := driver.SubmitSequential(context.Background(), solana.NewWallet().PublicKey(), txs)
	if err == nil {
		t.Fatalf("expected an error from the failing send")
	}
	if outcome.PartialCount != 0 {
		t.Fatalf("expected zero partial successes when the first send fails, got %d", outcome.PartialCount)
	}
}
