package httpapi

import (
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"

	"github.com/solana-zh/lp-engine/internal/errs"
)

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	walletID := chi.URLParam(r, "walletId")
	wallet, err := solana.PublicKeyFromBase58(walletID)
	if err != nil {
		writeError(w, r, errs.New(errs.Validation, "invalid wallet address"))
		return
	}
	positions, err := s.Indexer.List(r.Context(), wallet)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, positions)
}
