// Package httpapi implements the external HTTP surface (spec §6) on
// github.com/go-chi/chi/v5, grounded on the retrieval pack's gateway
// router (Sergey-Bar-Alfred/services/gateway/router) for the
// middleware-chain-then-mount-routes shape, generalized from that
// single-service gateway into the eleven-component engine's own
// envelope and route table.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/solana-zh/lp-engine/internal/errs"
)

// envelope is the response shape every handler returns, per spec §6:
// exactly one of data/error is set, requestId always is.
type envelope struct {
	Data      any        `json:"data,omitempty"`
	Error     *errorBody `json:"error,omitempty"`
	RequestID string     `json:"requestId"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    any    `json:"hint,omitempty"`
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data, RequestID: requestIDFrom(r.Context())})
}

// writeError maps err onto an HTTP status via internal/errs's kind→status
// table and serializes the envelope's error branch.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *errs.Error
	if !errs.AsError(err, &e) {
		e = errs.Wrap(errs.Internal, "unclassified error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errs.HTTPStatus(e.Kind))
	_ = json.NewEncoder(w).Encode(envelope{
		Error:     &errorBody{Code: string(e.Kind), Message: e.Message, Hint: e.Hint},
		RequestID: requestIDFrom(r.Context()),
	})
}

func errInternal(rec any) error {
	return errs.New(errs.Internal, fmt.Sprintf("panic: %v", rec))
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errs.New(errs.Validation, "request body required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Wrap(errs.Validation, "malformed request body", err)
	}
	return nil
}
