package sol

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	jitorpc "github.com/jito-labs/jito-go-rpc"
)

type JitoClient struct {
	rpcClient  *jitorpc.JitoJsonRpcClient
	tipAccount solana.PublicKey
}

// Jito endpoint refer to: https://docs.jito.wtf/lowlatencytxnsend/
func NewJitoClient(ctx context.Context, endpoint string) (*JitoClient, error) {
	rpcClient := jitorpc.NewJitoJsonRpcClient(endpoint, "")
	tipAccount, err := rpcClient.GetRandomTipAccount()
	if err != nil {
		return nil, fmt.Errorf("failed to get random tip account: %v", err)
	}
	tipAccountPublicKey, err := solana.PublicKeyFromBase58(tipAccount.Address)
	return &JitoClient{
		rpcClient:  rpcClient,
		tipAccount: tipAccountPublicKey,
	}, nil
}

func createTipTransaction(privateKey solana.PrivateKey, amount uint64, recentBlockhash solana.Hash, tipAddress string) (*solana.Transaction, error) {
	tipAccount, err := solana.PublicKeyFromBase58(tipAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tip account: %v", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(
				amount,
				privateKey.PublicKey(),
				tipAccount,
			).Build(),
		},
		recentBlockhash,
		solana.TransactionPayer(privateKey.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tip transaction: %v", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if privateKey.PublicKey().Equals(key) {
			return &privateKey
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign tip transaction: %v", err)
	}

	return tx, nil
}

func encodeTransaction(tx *solana.Transaction) string {
	serializedTx, err := tx.MarshalBinary()
	if err != nil {
		log.Fatalf("Failed to serialize transaction: %v", err)
	}
	return base64.StdEncoding.EncodeToString(serializedTx)
}

// BundleOutcome is the terminal state of a submitted Jito bundle.
type BundleOutcome string

const (
	BundleLanded  BundleOutcome = "LANDED"
	BundleDropped BundleOutcome = "DROPPED"
	BundleFailed  BundleOutcome = "FAILED"
)

const bundlePollInterval = 2 * time.Second

// WaitForBundle polls the relay for bundleId's status until it reaches a
// terminal state, ctx is done, or timeout elapses, whichever comes first.
// Replaces the old CheckBundleStatus, which printed status lines to stdout
// and returned nothing the submission driver could branch on.
func (c *JitoClient) WaitForBundle(ctx context.Context, bundleId string, timeout time.Duration) (BundleOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(bundlePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return BundleDropped, nil
		case <-ticker.C:
			statusResponse, err := c.rpcClient.GetBundleStatuses([]string{bundleId})
			if err != nil {
				continue
			}
			if len(statusResponse.Value) == 0 {
				continue
			}

			bundleStatus := statusResponse.Value[0]
			switch bundleStatus.ConfirmationStatus {
			case "finalized", "confirmed":
				if bundleStatus.Err.Ok == nil {
					return BundleLanded, nil
				}
				return BundleFailed, fmt.Errorf("bundle failed on-chain: %v", bundleStatus.Err.Ok)
			default:
				continue
			}
		}
	}
}
