package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/store"
)

type recipientBody struct {
	WalletID    string              `json:"walletId"`
	ChatChannel *store.ChatChannel  `json:"chatChannel"`
	Webhook     *store.Webhook      `json:"webhook"`
	Prefs       store.RecipientPrefs `json:"prefs"`
}

func (s *Server) handleCreateRecipient(w http.ResponseWriter, r *http.Request) {
	var body recipientBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.WalletID == "" {
		writeError(w, r, errs.New(errs.Validation, "walletId is required"))
		return
	}
	recipient := store.Recipient{
		WalletID:    body.WalletID,
		ChatChannel: body.ChatChannel,
		Webhook:     body.Webhook,
		Prefs:       body.Prefs,
	}
	if err := s.Store.SaveRecipient(r.Context(), recipient); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, recipient)
}

func (s *Server) handleUpdateRecipient(w http.ResponseWriter, r *http.Request) {
	walletID := chi.URLParam(r, "walletId")
	existing, ok, err := s.Store.GetRecipient(r.Context(), walletID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, errs.New(errs.NotFound, "recipient not found"))
		return
	}

	var body recipientBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.ChatChannel != nil {
		existing.ChatChannel = body.ChatChannel
	}
	if body.Webhook != nil {
		existing.Webhook = body.Webhook
	}
	existing.Prefs = body.Prefs

	if err := s.Store.SaveRecipient(r.Context(), *existing); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, existing)
}
