package dlmm

import (
	"context"
	"strconv"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/venue"
)

const poolListURL = "https://dlmm-api.meteora.ag/pair/all"

type dlmmListEntry struct {
	Address          string `json:"address"`
	MintX            string `json:"mint_x"`
	MintY            string `json:"mint_y"`
	BinStep          int32  `json:"bin_step"`
	CurrentPrice     float64 `json:"current_price"`
	Liquidity        string `json:"liquidity"`
	TradeVolume24h   float64 `json:"trade_volume_24h"`
	Apr              float64 `json:"apr"`
	BaseFeePercentage string `json:"base_fee_percentage"`
}

// ListPools fetches Meteora's public DLMM pair index and normalizes each
// entry into the canonical venue.Pool. Unlike Whirlpool/CLMM's numeric TVL
// field, Meteora reports liquidity as a decimal string, parsed with
// strconv.ParseFloat rather than assumed pre-scaled.
func (a *Adapter) ListPools(ctx context.Context) ([]venue.Pool, error) {
	var entries []dlmmListEntry
	if err := venue.FetchJSON(ctx, poolListURL, &entries); err != nil {
		return nil, err
	}

	pools := make([]venue.Pool, 0, len(entries))
	for _, e := range entries {
		addr, err := solana.PublicKeyFromBase58(e.Address)
		if err != nil {
			continue
		}
		mintX, err := solana.PublicKeyFromBase58(e.MintX)
		if err != nil {
			continue
		}
		mintY, err := solana.PublicKeyFromBase58(e.MintY)
		if err != nil {
			continue
		}
		liquidity, _ := strconv.ParseFloat(e.Liquidity, 64)
		baseFee, _ := strconv.ParseFloat(e.BaseFeePercentage, 64)

		pools = append(pools, venue.Pool{
			Address:   addr,
			Venue:     venue.DLMM,
			TokenA:    venue.Token{Mint: mintX},
			TokenB:    venue.Token{Mint: mintY},
			Price:     e.CurrentPrice,
			BinStep:   e.BinStep,
			TVL:       venue.DecFromFloat(liquidity),
			Volume24h: venue.DecFromFloat(e.TradeVolume24h),
			APR:       e.Apr,
			FeeBps:    int32(baseFee * 100),
		})
	}
	return pools, nil
}
