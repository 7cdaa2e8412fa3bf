package httpapi

import (
	"net/http"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/pipeline"
	"github.com/solana-zh/lp-engine/internal/store"
	"github.com/solana-zh/lp-engine/internal/venue"
)

type strategyBody struct {
	Venue            string `json:"venue"`
	Pool             string `json:"pool"`
	CollateralMint   string `json:"collateralMint"`
	CollateralAmount string `json:"collateralAmount"`
	RangeShape       string `json:"rangeShape"`
	CustomLower      *int32 `json:"customRangeLower"`
	CustomUpper      *int32 `json:"customRangeUpper"`
	Distribution     string `json:"distribution"`
	SlippageBps      int    `json:"slippageBps"`
	Urgency          string `json:"urgency"`
	VanityPrefix     string `json:"vanityPrefix"`
}

func (b strategyBody) toStrategy() (venue.Strategy, error) {
	pool, err := solana.PublicKeyFromBase58(b.Pool)
	if err != nil {
		return venue.Strategy{}, errs.New(errs.Validation, "invalid pool address")
	}
	mint, err := solana.PublicKeyFromBase58(b.CollateralMint)
	if err != nil {
		return venue.Strategy{}, errs.New(errs.Validation, "invalid collateral mint")
	}
	amount, ok := cosmath.NewIntFromString(b.CollateralAmount)
	if !ok {
		return venue.Strategy{}, errs.New(errs.Validation, "collateralAmount must be an integer string")
	}

	var customRange *venue.Range
	if b.CustomLower != nil && b.CustomUpper != nil {
		customRange = &venue.Range{Lower: *b.CustomLower, Upper: *b.CustomUpper}
	}

	urgency := venue.TipUrgency(b.Urgency)
	if urgency == "" {
		urgency = venue.Fast
	}
	dist := venue.DistributionShape(b.Distribution)
	if dist == "" {
		dist = venue.Spot
	}

	return venue.Strategy{
		Venue:            venue.Venue(b.Venue),
		Pool:             pool,
		CollateralMint:   mint,
		CollateralAmount: amount,
		RangeShape:       venue.RangeShape(b.RangeShape),
		CustomRange:      customRange,
		Distribution:     dist,
		SlippageBps:      b.SlippageBps,
		Urgency:          urgency,
		VanityPrefix:     b.VanityPrefix,
	}, nil
}

type openRequestBody struct {
	Owner    string       `json:"owner"`
	Strategy strategyBody `json:"strategy"`
}

// handleOpenPreview computes the range and liquidity quote a Strategy would
// use without submitting anything, so a caller can confirm sizing before
// spending a bundle on /lp/open/execute.
func (s *Server) handleOpenPreview(w http.ResponseWriter, r *http.Request) {
	var body openRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	strategy, err := body.Strategy.toStrategy()
	if err != nil {
		writeError(w, r, err)
		return
	}
	adapter, ok := s.Registry.Get(strategy.Venue)
	if !ok {
		writeError(w, r, errs.New(errs.UnsupportedPoolType, "no adapter registered for venue"))
		return
	}

	pool, err := adapter.DescribePool(r.Context(), strategy.Pool)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rng, err := adapter.ComputeRange(r.Context(), pool, strategy.RangeShape, strategy.CustomRange)
	if err != nil {
		writeError(w, r, err)
		return
	}
	quote, err := adapter.QuoteLiquidity(r.Context(), pool, rng, venue.Amounts{A: strategy.CollateralAmount, B: cosmath.ZeroInt()}, strategy.SlippageBps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, struct {
		Range venue.Range         `json:"range"`
		Quote venue.LiquidityQuote `json:"quote"`
	}{Range: rng, Quote: quote})
}

func (s *Server) handleOpenExecute(w http.ResponseWriter, r *http.Request) {
	var body openRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := solana.PublicKeyFromBase58(body.Owner)
	if err != nil {
		writeError(w, r, errs.New(errs.Validation, "invalid owner address"))
		return
	}
	strategy, err := body.Strategy.toStrategy()
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.Composer.OpenAtomic(r.Context(), pipeline.OpenRequest{Owner: owner, Strategy: strategy})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if result.PositionID != "" {
		_ = s.Store.TrackPosition(r.Context(), store.TrackedPosition{
			PositionID:  result.PositionID,
			WalletID:    owner.String(),
			Venue:       string(strategy.Venue),
			Pool:        strategy.Pool.String(),
			LastChecked: time.Now(),
			LastInRange: true,
		})
	}
	writeData(w, r, http.StatusOK, result)
}

type withdrawRequestBody struct {
	Owner       string            `json:"owner"`
	Position    venue.Position    `json:"position"`
	ConvertTo   string            `json:"convertTo"`
	SlippageBps int               `json:"slippageBps"`
	Urgency     string            `json:"urgency"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var body withdrawRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := solana.PublicKeyFromBase58(body.Owner)
	if err != nil {
		writeError(w, r, errs.New(errs.Validation, "invalid owner address"))
		return
	}

	var convertTo *solana.PublicKey
	if body.ConvertTo != "" {
		mint, err := solana.PublicKeyFromBase58(body.ConvertTo)
		if err != nil {
			writeError(w, r, errs.New(errs.Validation, "invalid convertTo mint"))
			return
		}
		convertTo = &mint
	}

	urgency := venue.TipUrgency(body.Urgency)
	if urgency == "" {
		urgency = venue.Fast
	}

	result, err := s.Composer.Withdraw(r.Context(), pipeline.WithdrawRequest{
		Owner:       owner,
		Position:    body.Position,
		ConvertTo:   convertTo,
		SlippageBps: body.SlippageBps,
		Urgency:     urgency,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = s.Store.UntrackPosition(r.Context(), body.Owner, body.Position.ID)
	writeData(w, r, http.StatusOK, result)
}

type rebalanceRequestBody struct {
	Owner        string         `json:"owner"`
	Position     venue.Position `json:"position"`
	SlippageBps  int            `json:"slippageBps"`
	Urgency      string         `json:"urgency"`
	VanityPrefix string         `json:"vanityPrefix"`
}

func (s *Server) handleRebalance(w http.ResponseWriter, r *http.Request) {
	var body rebalanceRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := solana.PublicKeyFromBase58(body.Owner)
	if err != nil {
		writeError(w, r, errs.New(errs.Validation, "invalid owner address"))
		return
	}
	urgency := venue.TipUrgency(body.Urgency)
	if urgency == "" {
		urgency = venue.Fast
	}

	result, err := s.Composer.Rebalance(r.Context(), pipeline.RebalanceRequest{
		Owner:        owner,
		OldPosition:  body.Position,
		SlippageBps:  body.SlippageBps,
		Urgency:      urgency,
		VanityPrefix: body.VanityPrefix,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if result.NewPositionID != "" {
		_ = s.Store.TrackPosition(r.Context(), store.TrackedPosition{
			PositionID:  result.NewPositionID,
			WalletID:    body.Owner,
			Venue:       string(body.Position.Venue),
			Pool:        body.Position.Pool.String(),
			RangeLower:  result.NewRange.Lower,
			RangeUpper:  result.NewRange.Upper,
			LastChecked: time.Now(),
			LastInRange: true,
		})
	}
	writeData(w, r, http.StatusOK, result)
}

type collectFeesRequestBody struct {
	Owner    string         `json:"owner"`
	Position venue.Position `json:"position"`
	Urgency  string         `json:"urgency"`
}

func (s *Server) handleCollectFees(w http.ResponseWriter, r *http.Request) {
	var body collectFeesRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := solana.PublicKeyFromBase58(body.Owner)
	if err != nil {
		writeError(w, r, errs.New(errs.Validation, "invalid owner address"))
		return
	}
	urgency := venue.TipUrgency(body.Urgency)
	if urgency == "" {
		urgency = venue.Fast
	}

	outcome, err := s.Composer.CollectFees(r.Context(), pipeline.CollectFeesRequest{
		Owner:    owner,
		Position: body.Position,
		Urgency:  urgency,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, outcome)
}
