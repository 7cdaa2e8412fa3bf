package store

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return &Store{b: newMemoryBackend(), logger: zap.NewNop()}
}

func TestTrackPositionThenList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tp := TrackedPosition{PositionID: "pos-1", WalletID: "w1", Pool: "pool-1", RangeLower: 4950, RangeUpper: 5050}
	if err := s.TrackPosition(ctx, tp); err != nil {
		t.Fatalf("TrackPosition: %v", err)
	}

	got, err := s.ListTrackedPositions(ctx, "w1")
	if err != nil {
		t.Fatalf("ListTrackedPositions: %v", err)
	}
	if len(got) != 1 || got[0].PositionID != "pos-1" {
		t.Fatalf("expected one tracked position pos-1, got %+v", got)
	}
}

func TestUntrackPositionRemovesBoth(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tp := TrackedPosition{PositionID: "pos-1", WalletID: "w1"}
	if err := s.TrackPosition(ctx, tp); err != nil {
		t.Fatalf("TrackPosition: %v", err)
	}
	if err := s.UntrackPosition(ctx, "w1", "pos-1"); err != nil {
		t.Fatalf("UntrackPosition: %v", err)
	}

	got, err := s.ListTrackedPositions(ctx, "w1")
	if err != nil {
		t.Fatalf("ListTrackedPositions: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no tracked positions after untrack, got %+v", got)
	}
}

func TestSaveScheduleUpdatesActiveSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sched := Schedule{ID: "sched-1", WalletID: "w1", Status: ScheduleActive, TotalBudget: 1_000_000_000}
	if err := s.SaveSchedule(ctx, sched); err != nil {
		t.Fatalf("SaveSchedule: %v", err)
	}

	active, err := s.ListActiveSchedules(ctx)
	if err != nil {
		t.Fatalf("ListActiveSchedules: %v", err)
	}
	if len(active) != 1 || active[0].ID != "sched-1" {
		t.Fatalf("expected sched-1 active, got %+v", active)
	}

	sched.Status = ScheduleComplete
	if err := s.SaveSchedule(ctx, sched); err != nil {
		t.Fatalf("SaveSchedule complete: %v", err)
	}

	active, err = s.ListActiveSchedules(ctx)
	if err != nil {
		t.Fatalf("ListActiveSchedules: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active schedules after completion, got %+v", active)
	}
}

func TestListCancelListRemovesExactlyOneSchedule(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		sched := Schedule{ID: id, WalletID: "w1", Status: ScheduleActive}
		if err := s.SaveSchedule(ctx, sched); err != nil {
			t.Fatalf("SaveSchedule %s: %v", id, err)
		}
	}

	before, err := s.ListSchedulesForWallet(ctx, "w1")
	if err != nil {
		t.Fatalf("ListSchedulesForWallet: %v", err)
	}
	if len(before) != 3 {
		t.Fatalf("expected 3 schedules before cancel, got %d", len(before))
	}

	if err := s.DeleteSchedule(ctx, "b"); err != nil {
		t.Fatalf("DeleteSchedule: %v", err)
	}

	after, err := s.ListSchedulesForWallet(ctx, "w1")
	if err != nil {
		t.Fatalf("ListSchedulesForWallet: %v", err)
	}
	if len(after) != 2 {
		t.Fatalf("expected exactly one schedule removed, got %d remaining", len(after))
	}
	for _, sc := range after {
		if sc.ID == "b" {
			t.Fatalf("expected schedule b to be gone")
		}
	}
}

func TestAppendHistoryCapsAtLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < historyCap+10; i++ {
		entry := HistoryEntry{At: time.Unix(int64(i), 0), Success: true}
		if err := s.AppendHistory(ctx, "sched-1", entry); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	hist, err := s.GetHistory(ctx, "sched-1")
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(hist) != historyCap {
		t.Fatalf("expected history capped at %d entries, got %d", historyCap, len(hist))
	}
}

func TestSaveRecipientRequiresTransport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := Recipient{WalletID: "w1"}
	if err := s.SaveRecipient(ctx, r); err == nil {
		t.Fatalf("expected error saving recipient with no transport")
	}

	r.ChatChannel = &ChatChannel{ChatID: "chat-1"}
	if err := s.SaveRecipient(ctx, r); err != nil {
		t.Fatalf("SaveRecipient with transport: %v", err)
	}
}

func TestListRecipientWalletsReturnsEverySavedWallet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"w1", "w2"} {
		r := Recipient{WalletID: id, ChatChannel: &ChatChannel{ChatID: "chat-" + id}}
		if err := s.SaveRecipient(ctx, r); err != nil {
			t.Fatalf("SaveRecipient %s: %v", id, err)
		}
	}

	wallets, err := s.ListRecipientWallets(ctx)
	if err != nil {
		t.Fatalf("ListRecipientWallets: %v", err)
	}
	if len(wallets) != 2 {
		t.Fatalf("expected 2 recipient wallets, got %d", len(wallets))
	}
}
