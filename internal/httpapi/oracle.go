package httpapi

import (
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"

	"github.com/solana-zh/lp-engine/internal/errs"
)

const maxBatchPriceMints = 20

func (s *Server) handleOraclePrice(w http.ResponseWriter, r *http.Request) {
	mintStr := chi.URLParam(r, "mint")
	mint, err := solana.PublicKeyFromBase58(mintStr)
	if err != nil {
		writeError(w, r, errs.New(errs.Validation, "invalid mint address"))
		return
	}
	result, err := s.Oracle.GetPrice(r.Context(), mint)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, result)
}

type batchPriceRequest struct {
	Mints []string `json:"mints"`
}

func (s *Server) handleOraclePrices(w http.ResponseWriter, r *http.Request) {
	var body batchPriceRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if len(body.Mints) > maxBatchPriceMints {
		writeError(w, r, errs.New(errs.Validation, "at most 20 mints per batch price request"))
		return
	}

	out := make(map[string]any, len(body.Mints))
	for _, m := range body.Mints {
		mint, err := solana.PublicKeyFromBase58(m)
		if err != nil {
			out[m] = errorBody{Code: string(errs.Validation), Message: "invalid mint address"}
			continue
		}
		result, err := s.Oracle.GetPrice(r.Context(), mint)
		if err != nil {
			out[m] = errorBody{Code: string(errs.KindOf(err)), Message: err.Error()}
			continue
		}
		out[m] = result
	}
	writeData(w, r, http.StatusOK, out)
}
