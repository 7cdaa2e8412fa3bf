package oracle

import (
	"context"
	"fmt"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/venue"
)

const pythLatestPriceURL = "https://hermes.pyth.network/v2/updates/price/latest?ids[]=%s"

type pythPriceResponse struct {
	Parsed []pythParsedPrice `json:"parsed"`
}

type pythParsedPrice struct {
	ID    string `json:"id"`
	Price struct {
		Price       string `json:"price"`
		Conf        string `json:"conf"`
		Expo        int32  `json:"expo"`
		PublishTime int64  `json:"publish_time"`
	} `json:"price"`
}

// PythSource is the confidence-interval-bearing primary feed. mintToPriceID
// maps a token mint to Pyth's price feed ID, since Pyth indexes by feed ID
// rather than by the SPL mint address itself.
type PythSource struct {
	mintToPriceID map[string]string
}

func NewPythSource(mintToPriceID map[string]string) *PythSource {
	return &PythSource{mintToPriceID: mintToPriceID}
}

func (s *PythSource) Name() string { return "pyth" }

func (s *PythSource) FetchPrice(ctx context.Context, mint solana.PublicKey) (Reading, error) {
	priceID, ok := s.mintToPriceID[mint.String()]
	if !ok {
		return Reading{}, fmt.Errorf("no pyth price feed id for mint %s", mint)
	}

	var resp pythPriceResponse
	url := fmt.Sprintf(pythLatestPriceURL, priceID)
	if err := venue.FetchJSON(ctx, url, &resp); err != nil {
		return Reading{}, err
	}
	if len(resp.Parsed) == 0 {
		return Reading{}, fmt.Errorf("pyth returned no price for feed %s", priceID)
	}

	parsed := resp.Parsed[0]
	price := scaleByExpo(parsed.Price.Price, parsed.Price.Expo)
	conf := scaleByExpo(parsed.Price.Conf, parsed.Price.Expo)

	return Reading{
		Price:       price,
		Confidence:  conf,
		PublishTime: time.Unix(parsed.Price.PublishTime, 0),
	}, nil
}

// scaleByExpo converts Pyth's integer-mantissa/exponent price encoding
// (price * 10^expo) into a LegacyDec, parsing the mantissa through the
// string constructor rather than strconv+float so large mantissas don't
// lose precision before the exponent is applied.
func scaleByExpo(mantissa string, expo int32) cosmath.LegacyDec {
	raw, err := cosmath.LegacyNewDecFromStr(mantissa)
	if err != nil {
		return cosmath.LegacyZeroDec()
	}
	if expo >= 0 {
		return raw.MulInt64(pow10Int64(expo))
	}
	return raw.QuoInt64(pow10Int64(-expo))
}

func pow10Int64(n int32) int64 {
	v := int64(1)
	for i := int32(0); i < n; i++ {
		v *= 10
	}
	return v
}
