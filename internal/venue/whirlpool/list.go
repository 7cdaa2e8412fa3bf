package whirlpool

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/venue"
)

const poolListURL = "https://api.mainnet.orca.so/v1/whirlpool/list"

type whirlpoolListResponse struct {
	Whirlpools []whirlpoolListEntry `json:"whirlpools"`
}

type whirlpoolListEntry struct {
	Address string `json:"address"`
	TokenA  struct {
		Mint     string `json:"mint"`
		Symbol   string `json:"symbol"`
		Decimals uint8  `json:"decimals"`
	} `json:"tokenA"`
	TokenB struct {
		Mint     string `json:"mint"`
		Symbol   string `json:"symbol"`
		Decimals uint8  `json:"decimals"`
	} `json:"tokenB"`
	TickSpacing int32   `json:"tickSpacing"`
	Price       float64 `json:"price"`
	Tvl         float64 `json:"tvl"`
	LpFeeRate   float64 `json:"lpFeeRate"`
	Volume      struct {
		Day float64 `json:"day"`
	} `json:"volume"`
	VolumeDenominatedA struct {
		Day float64 `json:"day"`
	} `json:"volumeDenominatedA"`
}

// ListPools fetches Orca's public whirlpool index and normalizes each entry
// into the canonical venue.Pool, including the APR the aggregator needs for
// dedup/ranking and that on-chain account decode cannot supply.
func (a *Adapter) ListPools(ctx context.Context) ([]venue.Pool, error) {
	var resp whirlpoolListResponse
	if err := venue.FetchJSON(ctx, poolListURL, &resp); err != nil {
		return nil, err
	}

	pools := make([]venue.Pool, 0, len(resp.Whirlpools))
	for _, e := range resp.Whirlpools {
		addr, err := solana.PublicKeyFromBase58(e.Address)
		if err != nil {
			continue
		}
		mintA, err := solana.PublicKeyFromBase58(e.TokenA.Mint)
		if err != nil {
			continue
		}
		mintB, err := solana.PublicKeyFromBase58(e.TokenB.Mint)
		if err != nil {
			continue
		}

		apr := 0.0
		if e.Tvl > 0 {
			apr = (e.Volume.Day * e.LpFeeRate * 365) / e.Tvl
		}

		pools = append(pools, venue.Pool{
			Address:     addr,
			Venue:       venue.WHIRLPOOL,
			TokenA:      venue.Token{Mint: mintA, Symbol: e.TokenA.Symbol, Decimals: e.TokenA.Decimals},
			TokenB:      venue.Token{Mint: mintB, Symbol: e.TokenB.Symbol, Decimals: e.TokenB.Decimals},
			Price:       e.Price,
			TickSpacing: e.TickSpacing,
			TVL:         venue.DecFromFloat(e.Tvl),
			Volume24h:   venue.DecFromFloat(e.Volume.Day),
			APR:         apr,
			FeeBps:      int32(e.LpFeeRate * 10_000),
		})
	}
	return pools, nil
}
