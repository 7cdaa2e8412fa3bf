package venue

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/pkg/sol"
)

// mintDecimalsOffset is the byte offset of the decimals field in an SPL
// Token mint account (COption<PublicKey> authority, then u64 supply, then
// u8 decimals at offset 44), a layout shared by both Token and Token-2022.
const mintDecimalsOffset = 44

// MintDecimals fetches an SPL mint account and reads its decimals byte.
// The Whirlpool and DLMM adapters' DescribePool call this to fill in
// Token.Decimals, since their on-chain pool layouts carry no decimals; the
// Raydium CLMM pool layout stores both mints' decimals and is read directly.
func MintDecimals(ctx context.Context, client *sol.Client, mint solana.PublicKey) (uint8, error) {
	info, err := client.GetAccountInfoWithOpts(ctx, mint)
	if err != nil {
		return 0, errs.Wrap(errs.VenueUnavailable, "fetch mint account", err)
	}
	if info == nil || info.Value == nil {
		return 0, errs.New(errs.NotFound, fmt.Sprintf("no mint account at %s", mint))
	}
	data := info.Value.Data.GetBinary()
	if len(data) <= mintDecimalsOffset {
		return 0, errs.New(errs.Internal, "mint account data too short")
	}
	return data[mintDecimalsOffset], nil
}
