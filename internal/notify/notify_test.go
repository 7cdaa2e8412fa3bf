package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/solana-zh/lp-engine/internal/store"
)

func newTestFanout(t *testing.T, chatAPIBase string) (*Fanout, *store.Store) {
	t.Helper()
	st := store.New("redis://127.0.0.1:0", zap.NewNop())
	return New(st, chatAPIBase, zap.NewNop()), st
}

func TestNotifyDeliveredWhenWebhookSucceeds(t *testing.T) {
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f, st := newTestFanout(t, "")
	ctx := context.Background()
	if err := st.SaveRecipient(ctx, store.Recipient{
		WalletID: "w1",
		Webhook:  &store.Webhook{URL: srv.URL, Secret: "s3cr3t"},
	}); err != nil {
		t.Fatalf("SaveRecipient: %v", err)
	}

	delivered, err := f.Notify(ctx, "w1", Event{Kind: OutOfRange, WalletID: "w1", Timestamp: time.Now().UTC()})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if !delivered {
		t.Fatalf("expected delivered=true")
	}
	if gotSig == "" {
		t.Fatalf("expected a non-empty HMAC signature header")
	}
}

func TestNotifyRetriesThenFails(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f, st := newTestFanout(t, "")
	ctx := context.Background()
	if err := st.SaveRecipient(ctx, store.Recipient{
		WalletID: "w1",
		Webhook:  &store.Webhook{URL: srv.URL, Secret: "s3cr3t"},
	}); err != nil {
		t.Fatalf("SaveRecipient: %v", err)
	}

	delivered, err := f.Notify(ctx, "w1", Event{Kind: OutOfRange, WalletID: "w1"})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if delivered {
		t.Fatalf("expected delivered=false after exhausting retries")
	}
	if atomic.LoadInt32(&attempts) != maxRetries {
		t.Fatalf("expected %d attempts, got %d", maxRetries, attempts)
	}
}

func TestNotifyDeliveredIfAnyTransportSucceeds(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okSrv.Close()
	failSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failSrv.Close()

	f, st := newTestFanout(t, failSrv.URL)
	ctx := context.Background()
	if err := st.SaveRecipient(ctx, store.Recipient{
		WalletID:    "w1",
		ChatChannel: &store.ChatChannel{ChatID: "c1"},
		Webhook:     &store.Webhook{URL: okSrv.URL, Secret: "s"},
	}); err != nil {
		t.Fatalf("SaveRecipient: %v", err)
	}

	delivered, err := f.Notify(ctx, "w1", Event{Kind: BackInRange, WalletID: "w1"})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if !delivered {
		t.Fatalf("expected delivered=true when at least one transport succeeds")
	}
}

func TestNotifyNoRecipientIsNotDelivered(t *testing.T) {
	f, _ := newTestFanout(t, "")
	delivered, err := f.Notify(context.Background(), "unknown", Event{Kind: OutOfRange})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if delivered {
		t.Fatalf("expected delivered=false for unknown wallet")
	}
}
