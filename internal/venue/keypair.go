package venue

import (
	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/utils"
)

// vanitySearchConcurrency bounds how many goroutines BuildOpen spends
// grinding for a vanity-prefixed keypair before it must hand a transaction
// back to the caller; kept low since this runs inline on the request path.
const vanitySearchConcurrency = 4

// NewPositionKeypair returns a fresh keypair for a new position account or
// position-NFT mint. When prefix is empty it generates an arbitrary
// keypair; otherwise it grinds for one whose base58 address starts with
// prefix, per Strategy.VanityPrefix (spec §4.1's BuildOpen contract).
func NewPositionKeypair(prefix string) (solana.PrivateKey, error) {
	if prefix == "" {
		return solana.NewWallet().PrivateKey, nil
	}
	kp, err := utils.FindKeyPairWithPrefix(prefix, vanitySearchConcurrency)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "vanity keypair search", err)
	}
	priv, err := solana.PrivateKeyFromBase58(kp.PrivateKey)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "decode vanity private key", err)
	}
	return priv, nil
}
