package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/solana-zh/lp-engine/internal/store"
)

func testServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	s := &Server{
		Store:  store.New("", zap.NewNop()),
		Logger: zap.NewNop(),
	}
	return s, NewRouter(s)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, rec.Body.String())
	}
	return env
}

func TestHealthzReturnsOK(t *testing.T) {
	_, h := testServer(t)
	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id header to be set")
	}
}

func TestCreateAndGetWallet(t *testing.T) {
	_, h := testServer(t)

	createRec := doJSON(t, h, http.MethodPost, "/wallets/", nil)
	if createRec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", createRec.Code, createRec.Body.String())
	}
	env := decodeEnvelope(t, createRec)
	data := env.Data.(map[string]any)
	walletID := data["walletId"].(string)
	if walletID == "" {
		t.Fatalf("expected a non-empty walletId")
	}

	getRec := doJSON(t, h, http.MethodGet, "/wallets/"+walletID, nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", getRec.Code, getRec.Body.String())
	}
}

func TestGetUnknownWalletReturnsNotFound(t *testing.T) {
	_, h := testServer(t)
	rec := doJSON(t, h, http.MethodGet, "/wallets/does-not-exist", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected error code NOT_FOUND, got %+v", env.Error)
	}
}

func TestCreateScheduleRejectsMissingFields(t *testing.T) {
	_, h := testServer(t)
	rec := doJSON(t, h, http.MethodPost, "/dca/", map[string]any{"walletId": "w1"})
	if rec.Code != http.StatusBadRequest && rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected a validation error status, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != "VALIDATION" {
		t.Fatalf("expected error code VALIDATION, got %+v", env.Error)
	}
}

func TestCreateScheduleThenPauseResumeCancel(t *testing.T) {
	_, h := testServer(t)

	createRec := doJSON(t, h, http.MethodPost, "/dca/", map[string]any{
		"walletId":       "w1",
		"venue":          "DLMM",
		"pool":           "pool-1",
		"collateralMint": "mint-a",
		"amountPerTick":  1000,
		"totalBudget":    10000,
		"tickInterval":   "24h",
	})
	if createRec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", createRec.Code, createRec.Body.String())
	}
	env := decodeEnvelope(t, createRec)
	data := env.Data.(map[string]any)
	id := data["id"].(string)

	pauseRec := doJSON(t, h, http.MethodPost, "/dca/"+id+"/pause", nil)
	if pauseRec.Code != http.StatusOK {
		t.Fatalf("expected pause to succeed, got %d: %s", pauseRec.Code, pauseRec.Body.String())
	}

	// pausing an already-paused schedule is not a valid transition
	secondPauseRec := doJSON(t, h, http.MethodPost, "/dca/"+id+"/pause", nil)
	if secondPauseRec.Code != http.StatusBadRequest && secondPauseRec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected re-pausing to fail validation, got %d: %s", secondPauseRec.Code, secondPauseRec.Body.String())
	}

	resumeRec := doJSON(t, h, http.MethodPost, "/dca/"+id+"/resume", nil)
	if resumeRec.Code != http.StatusOK {
		t.Fatalf("expected resume to succeed, got %d: %s", resumeRec.Code, resumeRec.Body.String())
	}

	cancelRec := doJSON(t, h, http.MethodPost, "/dca/"+id+"/cancel", nil)
	if cancelRec.Code != http.StatusOK {
		t.Fatalf("expected cancel to succeed, got %d: %s", cancelRec.Code, cancelRec.Body.String())
	}
}

func TestCreateAndUpdateRecipient(t *testing.T) {
	_, h := testServer(t)

	createRec := doJSON(t, h, http.MethodPost, "/notifications/recipients/", map[string]any{
		"walletId": "w1",
		"prefs":    map[string]any{},
	})
	if createRec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", createRec.Code, createRec.Body.String())
	}

	updateRec := doJSON(t, h, http.MethodPatch, "/notifications/recipients/w1", map[string]any{
		"webhook": map[string]any{"url": "https://example.com/hook"},
		"prefs":   map[string]any{},
	})
	if updateRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", updateRec.Code, updateRec.Body.String())
	}
}

func TestUpdateUnknownRecipientReturnsNotFound(t *testing.T) {
	_, h := testServer(t)
	rec := doJSON(t, h, http.MethodPatch, "/notifications/recipients/unknown", map[string]any{"prefs": map[string]any{}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}
