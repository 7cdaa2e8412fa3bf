package custody

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/pkg/sol"
)

// LocalSigner is a dev/local Oracle implementation holding private keys
// in-process, grounded on pkg/sol/sign.go's SignTransaction. Production
// deployments are expected to implement Oracle against an out-of-process
// signer instead; nothing in this package assumes LocalSigner is the only
// implementation.
type LocalSigner struct {
	client *sol.Client
	keys   map[string]solana.PrivateKey
}

func NewLocalSigner(client *sol.Client, keys []solana.PrivateKey) *LocalSigner {
	m := make(map[string]solana.PrivateKey, len(keys))
	for _, k := range keys {
		m[k.PublicKey().String()] = k
	}
	return &LocalSigner{client: client, keys: m}
}

func (s *LocalSigner) keyFor(wallet solana.PublicKey) (solana.PrivateKey, error) {
	key, ok := s.keys[wallet.String()]
	if !ok {
		return nil, errs.New(errs.SignRefused, fmt.Sprintf("no local key held for wallet %s", wallet))
	}
	return key, nil
}

func (s *LocalSigner) Sign(ctx context.Context, wallet solana.PublicKey, unsignedTx *solana.Transaction) (*solana.Transaction, error) {
	key, err := s.keyFor(wallet)
	if err != nil {
		return nil, err
	}

	_, err = unsignedTx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if key.PublicKey().Equals(pub) {
			return &key
		}
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.SignRefused, "sign transaction", err)
	}
	return unsignedTx, nil
}

func (s *LocalSigner) SignAndSend(ctx context.Context, wallet solana.PublicKey, unsignedTx *solana.Transaction) (solana.Signature, error) {
	signed, err := s.Sign(ctx, wallet, unsignedTx)
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := s.client.SendTx(ctx, signed)
	if err != nil {
		return solana.Signature{}, errs.Wrap(errs.RPCUnavailable, "send transaction", err)
	}
	return sig, nil
}
