package venue

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/pkg/pool/raydium"
	"github.com/solana-zh/lp-engine/pkg/sol"
)

// ClassifyUnsupported inspects the on-chain owner of a candidate pool
// address and, if it belongs to one of Raydium's non-concentrated product
// lines (classic AMM v4 or CPMM), returns an UNSUPPORTED_POOL_TYPE error
// naming the product line — satisfying describe-pool's failure mode from
// spec §4.1 ("UNSUPPORTED_POOL_TYPE if the address is a non-concentrated
// pool on a venue that has multiple product lines") with a real on-chain
// check instead of a bare address-prefix guess.
func ClassifyUnsupported(ctx context.Context, client *sol.Client, addr solana.PublicKey) error {
	info, err := client.GetAccountInfoWithOpts(ctx, addr)
	if err != nil {
		return errs.Wrap(errs.VenueUnavailable, "fetch account owner", err)
	}
	if info == nil || info.Value == nil {
		return errs.New(errs.NotFound, fmt.Sprintf("no account at %s", addr))
	}
	return ClassifyUnsupportedOwner(info.Value.Owner)
}

// ClassifyUnsupportedOwner is the owner-only half of ClassifyUnsupported,
// for callers (venue adapters' DescribePool) that already hold the account
// info from their own decode fetch and would otherwise re-fetch it.
func ClassifyUnsupportedOwner(owner solana.PublicKey) error {
	switch owner {
	case raydium.RAYDIUM_AMM_PROGRAM_ID:
		return errs.New(errs.UnsupportedPoolType, "raydium_amm").WithHint("raydium_amm")
	case raydium.RAYDIUM_CPMM_PROGRAM_ID:
		return errs.New(errs.UnsupportedPoolType, "raydium_cpmm").WithHint("raydium_cpmm")
	default:
		return nil
	}
}
