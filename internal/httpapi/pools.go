package httpapi

import (
	"net/http"
	"strconv"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"

	"github.com/solana-zh/lp-engine/internal/aggregator"
	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/venue"
)

func (s *Server) handleListPools(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := aggregator.Filter{
		MinTVL: cosmath.LegacyZeroDec(),
		Sort:   aggregator.SortField(q.Get("sort")),
	}
	if filter.Sort == "" {
		filter.Sort = aggregator.ByAPR
	}
	if v := q.Get("minTvl"); v != "" {
		dec, err := cosmath.LegacyNewDecFromStr(v)
		if err != nil {
			writeError(w, r, errs.New(errs.Validation, "minTvl must be a decimal string"))
			return
		}
		filter.MinTVL = dec
	}
	if v := q.Get("maxRiskScore"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, errs.New(errs.Validation, "maxRiskScore must be an integer"))
			return
		}
		filter.MaxRiskScore = n
	}

	pools, err := s.Aggregator.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, pools)
}

func (s *Server) handleBestPool(w http.ResponseWriter, r *http.Request) {
	symA := r.URL.Query().Get("tokenA")
	symB := r.URL.Query().Get("tokenB")
	if symA == "" || symB == "" {
		writeError(w, r, errs.New(errs.Validation, "tokenA and tokenB query params are required"))
		return
	}
	pool, err := s.Aggregator.BestPoolForPair(r.Context(), symA, symB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, pool)
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "address")
	venueTag := venue.Venue(r.URL.Query().Get("venue"))
	if venueTag == "" {
		writeError(w, r, errs.New(errs.Validation, "venue query param is required to resolve the adapter"))
		return
	}
	adapter, ok := s.Registry.Get(venueTag)
	if !ok {
		writeError(w, r, errs.New(errs.UnsupportedPoolType, "no adapter registered for venue"))
		return
	}
	poolAddr, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		writeError(w, r, errs.New(errs.Validation, "invalid pool address"))
		return
	}
	pool, err := adapter.DescribePool(r.Context(), poolAddr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, pool)
}
