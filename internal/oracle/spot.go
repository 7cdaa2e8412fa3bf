package oracle

import (
	"context"
	"fmt"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/venue"
)

const jupiterPriceURL = "https://price.jup.ag/v6/price?ids=%s"

type jupiterPriceResponse struct {
	Data map[string]jupiterPriceEntry `json:"data"`
}

type jupiterPriceEntry struct {
	Price float64 `json:"price"`
}

// SpotSource is the secondary, spot-only aggregator feed: it carries no
// confidence interval, so every Reading it returns has Confidence at the
// LegacyDec zero value. It also carries no publish timestamp of its own, so
// PublishTime is stamped at fetch time rather than left zero, which would
// make every Reading immediately stale.
type SpotSource struct {
	mintToSymbol map[string]string
}

func NewSpotSource(mintToSymbol map[string]string) *SpotSource {
	return &SpotSource{mintToSymbol: mintToSymbol}
}

func (s *SpotSource) Name() string { return "jupiter-spot" }

func (s *SpotSource) FetchPrice(ctx context.Context, mint solana.PublicKey) (Reading, error) {
	symbol, ok := s.mintToSymbol[mint.String()]
	if !ok {
		symbol = mint.String()
	}

	var resp jupiterPriceResponse
	url := fmt.Sprintf(jupiterPriceURL, symbol)
	if err := venue.FetchJSON(ctx, url, &resp); err != nil {
		return Reading{}, err
	}
	entry, ok := resp.Data[symbol]
	if !ok {
		return Reading{}, fmt.Errorf("no spot price for %s", symbol)
	}

	return Reading{
		Price:       venue.DecFromFloat(entry.Price),
		Confidence:  cosmath.LegacyZeroDec(),
		PublishTime: time.Now(),
	}, nil
}
