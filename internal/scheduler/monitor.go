// Package scheduler implements the scheduler and monitor (C8): a single
// cooperative ticker loop that re-reads tracked positions, classifies
// in-range/out-of-range transitions, enqueues auto-rebalances, and drives
// DCA schedules forward. Grounded on pkg/sol/jito.go's WaitForBundle poll
// loop: a time.Ticker plus a select over ctx.Done()/ticker.C, generalized
// from "poll one bundle until terminal" into "run one tick forever."
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solana-zh/lp-engine/internal/notify"
	"github.com/solana-zh/lp-engine/internal/pipeline"
	"github.com/solana-zh/lp-engine/internal/store"
	"github.com/solana-zh/lp-engine/internal/venue"
)

// defaultRebalanceSlippageBps is the slippage tier an auto-enqueued
// rebalance starts at; it still escalates through C5's own ladder if it
// lands with SLIPPAGE_EXCEEDED.
const defaultRebalanceSlippageBps = 300

// stateStore is the subset of *store.Store the monitor needs.
type stateStore interface {
	ListRecipientWallets(ctx context.Context) ([]string, error)
	GetRecipient(ctx context.Context, walletID string) (*store.Recipient, bool, error)
	ListTrackedPositionsForWallets(ctx context.Context, walletIDs []string) (map[string][]store.TrackedPosition, error)
	TrackPosition(ctx context.Context, tp store.TrackedPosition) error
	ListActiveSchedules(ctx context.Context) ([]store.Schedule, error)
	SaveSchedule(ctx context.Context, sched store.Schedule) error
	AppendHistory(ctx context.Context, scheduleID string, entry store.HistoryEntry) error
	SaveWorkerState(ctx context.Context, ws store.WorkerState) error
	GetWorkerState(ctx context.Context) (*store.WorkerState, error)
	AppendWorkerLog(ctx context.Context, line string) error
}

// notifier is the subset of *notify.Fanout the monitor needs.
type notifier interface {
	Notify(ctx context.Context, walletID string, event notify.Event) (bool, error)
}

// composer is the subset of *pipeline.Composer the monitor needs to act on
// drift and DCA tick findings.
type composer interface {
	Rebalance(ctx context.Context, req pipeline.RebalanceRequest) (pipeline.RebalanceResult, error)
	OpenAtomic(ctx context.Context, req pipeline.OpenRequest) (pipeline.OpenResult, error)
}

// Monitor is the C8 orchestrator: one goroutine, one ticker, cooperative
// between position-drift detection and DCA ticking, never run concurrently
// with itself.
type Monitor struct {
	mu       sync.Mutex // serializes tick between Run and Tick
	store    stateStore
	registry venue.Registry
	notifier notifier
	composer composer
	interval time.Duration
	logger   *zap.Logger
}

// New builds a Monitor from the concrete collaborator types
// cmd/lpengine/main.go constructs at startup.
func New(st *store.Store, registry venue.Registry, fanout *notify.Fanout, comp *pipeline.Composer, interval time.Duration, logger *zap.Logger) *Monitor {
	return &Monitor{
		store:    st,
		registry: registry,
		notifier: fanout,
		composer: comp,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, ticking every m.interval. Intended to
// be started in its own goroutine from cmd/lpengine/main.go.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	ws, err := m.store.GetWorkerState(ctx)
	if err != nil {
		ws = &store.WorkerState{}
	}
	ws.Running = true
	ws.StartedAt = time.Now()
	if err := m.store.SaveWorkerState(ctx, *ws); err != nil {
		m.logger.Warn("save initial worker state failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// Tick runs one on-demand pass outside the ticker loop, for the
// POST /worker/check endpoint.
func (m *Monitor) Tick(ctx context.Context) {
	m.tick(ctx)
}

// tick runs one full pass: position-drift detection, then the DCA tick, in
// that order, so a schedule's fresh open never races a rebalance on the
// same wallet within the same tick.
func (m *Monitor) tick(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.store.GetWorkerState(ctx)
	if err != nil || state == nil {
		state = &store.WorkerState{Running: true}
	}

	if err := m.checkPositions(ctx); err != nil {
		state.Errors++
		m.logger.Warn("position check tick failed", zap.Error(err))
	}
	if err := m.tickSchedules(ctx); err != nil {
		state.Errors++
		m.logger.Warn("dca tick failed", zap.Error(err))
	}

	state.Running = true
	state.LastCheck = time.Now()
	state.ChecksCompleted++
	if err := m.store.SaveWorkerState(ctx, *state); err != nil {
		m.logger.Warn("save worker state failed", zap.Error(err))
	}
	_ = m.store.AppendWorkerLog(ctx, fmt.Sprintf("tick completed at %s", state.LastCheck.Format(time.RFC3339)))
}

// checkPositions implements spec §4.8's position pass: for every wallet
// with a saved Recipient, re-read each TrackedPosition's pool index and
// classify the in-range/out-of-range transition.
func (m *Monitor) checkPositions(ctx context.Context) error {
	wallets, err := m.store.ListRecipientWallets(ctx)
	if err != nil {
		return err
	}
	byWallet, err := m.store.ListTrackedPositionsForWallets(ctx, wallets)
	if err != nil {
		return err
	}
	for walletID, positions := range byWallet {
		recipient, ok, err := m.store.GetRecipient(ctx, walletID)
		if err != nil || !ok {
			continue
		}
		for _, tp := range positions {
			m.checkOnePosition(ctx, walletID, *recipient, tp)
		}
	}
	return nil
}

func (m *Monitor) checkOnePosition(ctx context.Context, walletID string, recipient store.Recipient, tp store.TrackedPosition) {
	adapter, ok := m.registry.Get(venue.Venue(tp.Venue))
	if !ok {
		return
	}
	poolAddr, err := solana.PublicKeyFromBase58(tp.Pool)
	if err != nil {
		m.logger.Warn("tracked position has invalid pool address", zap.String("pool", tp.Pool))
		return
	}
	pool, err := adapter.DescribePool(ctx, poolAddr)
	if err != nil {
		m.logger.Warn("describe pool failed during monitor tick", zap.String("pool", tp.Pool), zap.Error(err))
		return
	}

	inRange := pool.ActiveIndex >= tp.RangeLower && pool.ActiveIndex <= tp.RangeUpper
	drift := driftGridUnits(pool.ActiveIndex, tp.RangeLower, tp.RangeUpper)

	switch {
	case tp.LastInRange && !inRange:
		tp.OutOfRangeSince = time.Now()
		m.onOutOfRange(ctx, walletID, recipient, tp, drift)
	case !tp.LastInRange && inRange:
		m.onBackInRange(ctx, walletID, recipient, tp)
		tp.OutOfRangeSince = time.Time{}
	}

	tp.LastInRange = inRange
	tp.LastChecked = time.Now()
	if err := m.store.TrackPosition(ctx, tp); err != nil {
		m.logger.Warn("update tracked position failed", zap.Error(err))
	}
}

// driftGridUnits is the distance from the nearest range edge in grid units
// (bins or ticks), venue-agnostic per spec §4.8, zero while in range.
func driftGridUnits(active, lower, upper int32) int {
	switch {
	case active < lower:
		return int(lower - active)
	case active > upper:
		return int(active - upper)
	default:
		return 0
	}
}

func (m *Monitor) onOutOfRange(ctx context.Context, walletID string, recipient store.Recipient, tp store.TrackedPosition, drift int) {
	if recipient.Prefs.AlertOnOutOfRange {
		_, err := m.notifier.Notify(ctx, walletID, notify.Event{
			Kind:           notify.OutOfRange,
			WalletID:       walletID,
			PositionID:     tp.PositionID,
			Pool:           tp.Pool,
			DriftGridUnits: drift,
			SuggestedAction: &notify.SuggestedAction{
				Endpoint:   "/lp/rebalance",
				Parameters: map[string]any{"positionId": tp.PositionID},
			},
			Timestamp: time.Now(),
		})
		if err != nil {
			m.logger.Warn("out of range notify failed", zap.Error(err))
		}
	}

	if !recipient.Prefs.AutoRebalance || drift <= recipient.Prefs.RebalanceDriftThresholdBps {
		return
	}
	m.enqueueRebalance(ctx, walletID, tp)
}

func (m *Monitor) onBackInRange(ctx context.Context, walletID string, recipient store.Recipient, tp store.TrackedPosition) {
	if !recipient.Prefs.AlertOnBackInRange {
		return
	}
	_, err := m.notifier.Notify(ctx, walletID, notify.Event{
		Kind:       notify.BackInRange,
		WalletID:   walletID,
		PositionID: tp.PositionID,
		Pool:       tp.Pool,
		Timestamp:  time.Now(),
	})
	if err != nil {
		m.logger.Warn("back in range notify failed", zap.Error(err))
	}
}

// enqueueRebalance re-reads the live Position from its venue adapter
// (never the stale TrackedPosition shadow) and drives it through C5's
// atomic rebalance.
func (m *Monitor) enqueueRebalance(ctx context.Context, walletID string, tp store.TrackedPosition) {
	owner, err := solana.PublicKeyFromBase58(walletID)
	if err != nil {
		return
	}
	adapter, ok := m.registry.Get(venue.Venue(tp.Venue))
	if !ok {
		return
	}
	positions, err := adapter.EnumeratePositions(ctx, owner)
	if err != nil {
		m.logger.Warn("enumerate positions for rebalance failed", zap.Error(err))
		return
	}
	var target *venue.Position
	for i := range positions {
		if positions[i].ID == tp.PositionID {
			target = &positions[i]
			break
		}
	}
	if target == nil {
		return
	}

	result, err := m.composer.Rebalance(ctx, pipeline.RebalanceRequest{
		Owner:       owner,
		OldPosition: *target,
		SlippageBps: defaultRebalanceSlippageBps,
		Urgency:     venue.Fast,
	})
	if err != nil {
		m.logger.Warn("auto rebalance failed", zap.String("wallet", walletID), zap.Error(err))
		_ = m.store.AppendWorkerLog(ctx, fmt.Sprintf("auto rebalance failed wallet=%s position=%s err=%v", walletID, tp.PositionID, err))
		return
	}
	_ = m.store.AppendWorkerLog(ctx, fmt.Sprintf("auto rebalanced wallet=%s position=%s newRange=[%d,%d]", walletID, tp.PositionID, result.NewRange.Lower, result.NewRange.Upper))
}
