package httpapi

import (
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-chi/chi/v5"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/store"
)

type createWalletResponse struct {
	WalletID string `json:"walletId"`
	Created  bool   `json:"created"`
}

// handleCreateWallet mints a fresh keypair and persists its public half as
// a UserProfile. It cannot make the new wallet independently signable —
// custody.LocalSigner's keyset is fixed at construction in
// cmd/lpengine/main.go — so dev-mode callers must fund and register the
// wallet with whatever signer is configured before issuing LP operations
// against it.
func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	wallet := solana.NewWallet()
	profile := store.UserProfile{
		WalletID: wallet.PublicKey().String(),
		Address:  wallet.PublicKey().String(),
		Created:  time.Now(),
	}
	if err := s.Store.SaveUser(r.Context(), profile); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, createWalletResponse{WalletID: profile.WalletID, Created: true})
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	walletID := chi.URLParam(r, "walletId")
	profile, ok, err := s.Store.GetUser(r.Context(), walletID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, errs.New(errs.NotFound, "wallet not found"))
		return
	}
	writeData(w, r, http.StatusOK, profile)
}

type balanceResponse struct {
	WalletID string `json:"walletId"`
	Lamports uint64 `json:"lamports"`
}

func (s *Server) handleWalletBalance(w http.ResponseWriter, r *http.Request) {
	walletID := chi.URLParam(r, "walletId")
	pub, err := solana.PublicKeyFromBase58(walletID)
	if err != nil {
		writeError(w, r, errs.New(errs.Validation, "invalid wallet address"))
		return
	}
	result, err := s.Client.GetBalance(r.Context(), pub, rpc.CommitmentConfirmed)
	if err != nil {
		writeError(w, r, errs.Wrap(errs.RPCUnavailable, "fetch balance", err))
		return
	}
	writeData(w, r, http.StatusOK, balanceResponse{WalletID: walletID, Lamports: result.Value})
}
