package venue

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/pkg/sol"
)

// splTokenAccountSize is the fixed size of an SPL Token Program token
// account: mint(32) + owner(32) + amount(8) + delegateOption(4) +
// delegate(32) + state(1) + isNativeOption(4) + isNative(8) +
// delegatedAmount(8) + closeAuthorityOption(4) + closeAuthority(32).
const splTokenAccountSize = 165

// ScanPositionNFTMints returns every mint held by wallet with the
// balance-1/decimals-0 signature of a concentrated-liquidity position NFT
// (Whirlpool and Raydium CLMM both represent a position this way; DLMM does
// not, and is enumerated separately via an owner-indexed program-account
// scan). Every candidate mint's decimals are confirmed via a follow-up
// MintDecimals call, since a token account's own data carries only the
// balance, not the mint's decimals.
func ScanPositionNFTMints(ctx context.Context, client *sol.Client, wallet solana.PublicKey) ([]solana.PublicKey, error) {
	tokenProgramID := solana.TokenProgramID
	resp, err := client.GetTokenAccountsByOwner(ctx, wallet,
		&rpc.GetTokenAccountsConfig{ProgramId: tokenProgramID.ToPointer()},
		&rpc.GetTokenAccountsOpts{Encoding: "base64"},
	)
	if err != nil {
		return nil, errs.Wrap(errs.RPCUnavailable, "scan token accounts by owner", err)
	}

	var mints []solana.PublicKey
	for _, acc := range resp.Value {
		data := acc.Account.Data.GetBinary()
		if len(data) < splTokenAccountSize {
			continue
		}
		amount := decodeU64LE(data[64:72])
		if amount != 1 {
			continue
		}
		mint := solana.PublicKeyFromBytes(data[0:32])
		decimals, err := MintDecimals(ctx, client, mint)
		if err != nil {
			continue
		}
		if decimals != 0 {
			continue
		}
		mints = append(mints, mint)
	}
	return mints, nil
}

func decodeU64LE(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
