// Package store implements the state store façade (C11): a thin interface
// over a durable key-value store, backed by github.com/redis/go-redis/v9
// (grounded on the retrieval pack's redisclient.New idiom: redis.ParseURL
// + redis.NewClient) with an automatic in-memory fallback (plain maps under
// one mutex)
// when Redis is unreachable at startup, per spec §4.11.
package store

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/solana-zh/lp-engine/internal/errs"
)

const pingTimeout = 2 * time.Second

// Store is the domain-level façade every other component calls; it never
// exposes the raw backend so callers can't bypass the write-then-membership
// ordering the higher-level helpers enforce.
type Store struct {
	b      backend
	logger *zap.Logger
}

// New connects to redisURL; if the Redis ping fails, it logs a warning and
// falls back to an in-memory store rather than failing startup, matching
// spec §4.11's "optional in-memory fallback when the store is unreachable."
func New(redisURL string, logger *zap.Logger) *Store {
	rb, err := newRedisBackend(redisURL)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		if pingErr := rb.ping(ctx); pingErr == nil {
			return &Store{b: rb, logger: logger}
		} else {
			logger.Warn("redis unreachable at startup, falling back to in-memory store", zap.Error(pingErr))
		}
	} else {
		logger.Warn("invalid redis url, falling back to in-memory store", zap.Error(err))
	}
	return &Store{b: newMemoryBackend(), logger: logger}
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errs.Wrap(errs.Internal, "marshal store value", err)
	}
	return s.b.Set(ctx, key, string(raw))
}

func (s *Store) getJSON(ctx context.Context, key string, out any) (bool, error) {
	raw, ok, err := s.b.Get(ctx, key)
	if err != nil {
		return false, errs.Wrap(errs.Internal, "read store value", err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, errs.Wrap(errs.Internal, "unmarshal store value", err)
	}
	return true, nil
}

func (s *Store) hsetJSON(ctx context.Context, key, field string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errs.Wrap(errs.Internal, "marshal store field", err)
	}
	return s.b.HSet(ctx, key, field, string(raw))
}

func (s *Store) hgetJSON(ctx context.Context, key, field string, out any) (bool, error) {
	raw, ok, err := s.b.HGet(ctx, key, field)
	if err != nil {
		return false, errs.Wrap(errs.Internal, "read store field", err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, errs.Wrap(errs.Internal, "unmarshal store field", err)
	}
	return true, nil
}

// --- UserProfile / wallet-chat linking ---

func (s *Store) SaveUser(ctx context.Context, u UserProfile) error {
	return s.setJSON(ctx, userKey(u.WalletID), u)
}

func (s *Store) GetUser(ctx context.Context, walletID string) (*UserProfile, bool, error) {
	var u UserProfile
	ok, err := s.getJSON(ctx, userKey(walletID), &u)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &u, true, nil
}

func (s *Store) LinkChat(ctx context.Context, chatID, walletID string) error {
	return s.b.Set(ctx, chatWalletKey(chatID), walletID)
}

func (s *Store) ResolveChat(ctx context.Context, chatID string) (string, bool, error) {
	v, ok, err := s.b.Get(ctx, chatWalletKey(chatID))
	if err != nil {
		return "", false, errs.Wrap(errs.Internal, "resolve chat wallet", err)
	}
	return v, ok, nil
}

// --- Recipient ---

func (s *Store) SaveRecipient(ctx context.Context, r Recipient) error {
	if !r.HasTransport() {
		return errs.New(errs.Validation, "recipient must have at least one enabled transport")
	}
	if err := s.setJSON(ctx, recipientKey(r.WalletID), r); err != nil {
		return err
	}
	return s.b.SAdd(ctx, recipientsSetKey, r.WalletID)
}

func (s *Store) GetRecipient(ctx context.Context, walletID string) (*Recipient, bool, error) {
	var r Recipient
	ok, err := s.getJSON(ctx, recipientKey(walletID), &r)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &r, true, nil
}

// ListRecipientWallets returns every wallet ID that has ever saved a
// Recipient, the candidate set internal/scheduler iterates each tick.
func (s *Store) ListRecipientWallets(ctx context.Context) ([]string, error) {
	ids, err := s.b.SMembers(ctx, recipientsSetKey)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "list recipient wallets", err)
	}
	return ids, nil
}

// --- TrackedPosition ---

// TrackPosition writes the position record before adding it to the
// wallet's tracked set, so a crash between the two steps leaves at most an
// unreachable record, never a dangling membership — spec §4.11's ordering
// rule.
func (s *Store) TrackPosition(ctx context.Context, tp TrackedPosition) error {
	if err := s.setJSON(ctx, trackedRecordKey(tp.WalletID, tp.PositionID), tp); err != nil {
		return err
	}
	return s.b.SAdd(ctx, trackedSetKey(tp.WalletID), tp.PositionID)
}

// UntrackPosition removes the set membership before deleting the record,
// the reverse order of TrackPosition, for the same crash-safety reason:
// membership must never outlive the thing it claims exists.
func (s *Store) UntrackPosition(ctx context.Context, walletID, positionID string) error {
	if err := s.b.SRem(ctx, trackedSetKey(walletID), positionID); err != nil {
		return errs.Wrap(errs.Internal, "remove tracked position membership", err)
	}
	return s.b.Del(ctx, trackedRecordKey(walletID, positionID))
}

func (s *Store) ListTrackedPositions(ctx context.Context, walletID string) ([]TrackedPosition, error) {
	ids, err := s.b.SMembers(ctx, trackedSetKey(walletID))
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "list tracked positions", err)
	}
	out := make([]TrackedPosition, 0, len(ids))
	for _, id := range ids {
		var tp TrackedPosition
		ok, err := s.getJSON(ctx, trackedRecordKey(walletID, id), &tp)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, tp)
		}
	}
	return out, nil
}

// ListTrackedPositionsForWallets returns the tracked positions of each of
// walletIDs, omitting wallets with none. Since lp:tracked:* is sharded per
// wallet rather than a single set, there is no key scan over every tracked
// wallet; the monitor passes the recipient set (ListRecipientWallets) as
// walletIDs, so only wallets with a saved Recipient are covered.
func (s *Store) ListTrackedPositionsForWallets(ctx context.Context, walletIDs []string) (map[string][]TrackedPosition, error) {
	out := make(map[string][]TrackedPosition, len(walletIDs))
	for _, w := range walletIDs {
		tps, err := s.ListTrackedPositions(ctx, w)
		if err != nil {
			return nil, err
		}
		if len(tps) > 0 {
			out[w] = tps
		}
	}
	return out, nil
}

// --- Schedule (DCA) ---

// SaveSchedule writes the schedule's value before reconciling its set
// membership, same ordering rule as TrackPosition.
func (s *Store) SaveSchedule(ctx context.Context, sched Schedule) error {
	if err := s.hsetJSON(ctx, scheduleHashKey, sched.ID, sched); err != nil {
		return err
	}
	if sched.Status == ScheduleActive {
		return s.b.SAdd(ctx, activeSetKey, sched.ID)
	}
	return s.b.SRem(ctx, activeSetKey, sched.ID)
}

func (s *Store) GetSchedule(ctx context.Context, id string) (*Schedule, bool, error) {
	var sched Schedule
	ok, err := s.hgetJSON(ctx, scheduleHashKey, id, &sched)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &sched, true, nil
}

func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	if err := s.b.SRem(ctx, activeSetKey, id); err != nil {
		return errs.Wrap(errs.Internal, "remove schedule from active set", err)
	}
	return s.b.HDel(ctx, scheduleHashKey, id)
}

func (s *Store) ListSchedulesForWallet(ctx context.Context, walletID string) ([]Schedule, error) {
	all, err := s.b.HGetAll(ctx, scheduleHashKey)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "list schedules", err)
	}
	out := make([]Schedule, 0, len(all))
	for _, raw := range all {
		var sched Schedule
		if err := json.Unmarshal([]byte(raw), &sched); err != nil {
			continue
		}
		if sched.WalletID == walletID {
			out = append(out, sched)
		}
	}
	return out, nil
}

func (s *Store) ListActiveSchedules(ctx context.Context) ([]Schedule, error) {
	ids, err := s.b.SMembers(ctx, activeSetKey)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "list active schedules", err)
	}
	out := make([]Schedule, 0, len(ids))
	for _, id := range ids {
		sched, ok, err := s.GetSchedule(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, *sched)
		}
	}
	return out, nil
}

func (s *Store) AppendHistory(ctx context.Context, scheduleID string, entry HistoryEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return errs.Wrap(errs.Internal, "marshal history entry", err)
	}
	key := scheduleHistoryKey(scheduleID)
	if err := s.b.ListPush(ctx, key, string(raw)); err != nil {
		return errs.Wrap(errs.Internal, "append history", err)
	}
	return s.b.ListTrim(ctx, key, historyCap)
}

func (s *Store) GetHistory(ctx context.Context, scheduleID string) ([]HistoryEntry, error) {
	raws, err := s.b.ListRange(ctx, scheduleHistoryKey(scheduleID))
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "read history", err)
	}
	out := make([]HistoryEntry, 0, len(raws))
	for _, raw := range raws {
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// --- WorkerState / logs ---

func (s *Store) SaveWorkerState(ctx context.Context, ws WorkerState) error {
	return s.setJSON(ctx, workerStateKey, ws)
}

func (s *Store) GetWorkerState(ctx context.Context) (*WorkerState, error) {
	var ws WorkerState
	ok, err := s.getJSON(ctx, workerStateKey, &ws)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &WorkerState{}, nil
	}
	return &ws, nil
}

func (s *Store) AppendWorkerLog(ctx context.Context, line string) error {
	if err := s.b.ListPush(ctx, workerLogsKey, line); err != nil {
		return errs.Wrap(errs.Internal, "append worker log", err)
	}
	return s.b.ListTrim(ctx, workerLogsKey, logCap)
}

func (s *Store) WorkerLogs(ctx context.Context) ([]string, error) {
	out, err := s.b.ListRange(ctx, workerLogsKey)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "read worker logs", err)
	}
	return out, nil
}
