package clmm

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/venue"
)

const poolListURL = "https://api-v3.raydium.io/pools/info/list?poolType=concentrated&poolSortField=default&sortType=desc&pageSize=1000&page=1"

type clmmListResponse struct {
	Success bool           `json:"success"`
	Data    clmmListData   `json:"data"`
}

type clmmListData struct {
	Data []clmmListEntry `json:"data"`
}

type clmmListEntry struct {
	ID     string `json:"id"`
	MintA  struct {
		Address  string `json:"address"`
		Symbol   string `json:"symbol"`
		Decimals uint8  `json:"decimals"`
	} `json:"mintA"`
	MintB struct {
		Address  string `json:"address"`
		Symbol   string `json:"symbol"`
		Decimals uint8  `json:"decimals"`
	} `json:"mintB"`
	Price       float64 `json:"price"`
	TickSpacing int32   `json:"config"`
	Tvl         float64 `json:"tvl"`
	FeeRate     float64 `json:"feeRate"`
	Day         struct {
		Volume float64 `json:"volume"`
		Apr    float64 `json:"apr"`
	} `json:"day"`
}

// ListPools fetches Raydium's public CLMM pool index. The upstream response
// nests the pool array two levels deep ({success, data: {data: [...]}})
// unlike Orca's flat {whirlpools: [...]}, so clmmListResponse mirrors that
// shape rather than reusing whirlpoolListResponse's layout.
func (a *Adapter) ListPools(ctx context.Context) ([]venue.Pool, error) {
	var resp clmmListResponse
	if err := venue.FetchJSON(ctx, poolListURL, &resp); err != nil {
		return nil, err
	}

	entries := resp.Data.Data
	pools := make([]venue.Pool, 0, len(entries))
	for _, e := range entries {
		addr, err := solana.PublicKeyFromBase58(e.ID)
		if err != nil {
			continue
		}
		mintA, err := solana.PublicKeyFromBase58(e.MintA.Address)
		if err != nil {
			continue
		}
		mintB, err := solana.PublicKeyFromBase58(e.MintB.Address)
		if err != nil {
			continue
		}

		pools = append(pools, venue.Pool{
			Address:     addr,
			Venue:       venue.CLMM,
			TokenA:      venue.Token{Mint: mintA, Symbol: e.MintA.Symbol, Decimals: e.MintA.Decimals},
			TokenB:      venue.Token{Mint: mintB, Symbol: e.MintB.Symbol, Decimals: e.MintB.Decimals},
			Price:       e.Price,
			TickSpacing: e.TickSpacing,
			TVL:         venue.DecFromFloat(e.Tvl),
			Volume24h:   venue.DecFromFloat(e.Day.Volume),
			APR:         e.Day.Apr,
			FeeBps:      int32(e.FeeRate * 10_000),
		})
	}
	return pools, nil
}
