package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/notify"
	"github.com/solana-zh/lp-engine/internal/pipeline"
	"github.com/solana-zh/lp-engine/internal/submission"
	"github.com/solana-zh/lp-engine/internal/venue"
	"github.com/solana-zh/lp-engine/internal/store"
)

// --- fakes ---

type fakeStore struct {
	recipientWallets []string
	recipients       map[string]store.Recipient
	tracked          map[string][]store.TrackedPosition
	trackUpdates     []store.TrackedPosition

	schedules      []store.Schedule
	savedSchedules []store.Schedule
	history        []store.HistoryEntry

	workerState store.WorkerState
	logs        []string
}

func (s *fakeStore) ListRecipientWallets(ctx context.Context) ([]string, error) {
	return s.recipientWallets, nil
}

func (s *fakeStore) GetRecipient(ctx context.Context, walletID string) (*store.Recipient, bool, error) {
	r, ok := s.recipients[walletID]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (s *fakeStore) ListTrackedPositionsForWallets(ctx context.Context, walletIDs []string) (map[string][]store.TrackedPosition, error) {
	return s.tracked, nil
}

func (s *fakeStore) TrackPosition(ctx context.Context, tp store.TrackedPosition) error {
	s.trackUpdates = append(s.trackUpdates, tp)
	return nil
}

func (s *fakeStore) ListActiveSchedules(ctx context.Context) ([]store.Schedule, error) {
	return s.schedules, nil
}

func (s *fakeStore) SaveSchedule(ctx context.Context, sched store.Schedule) error {
	s.savedSchedules = append(s.savedSchedules, sched)
	return nil
}

func (s *fakeStore) AppendHistory(ctx context.Context, scheduleID string, entry store.HistoryEntry) error {
	s.history = append(s.history, entry)
	return nil
}

func (s *fakeStore) SaveWorkerState(ctx context.Context, ws store.WorkerState) error {
	s.workerState = ws
	return nil
}

func (s *fakeStore) GetWorkerState(ctx context.Context) (*store.WorkerState, error) {
	return &s.workerState, nil
}

func (s *fakeStore) AppendWorkerLog(ctx context.Context, line string) error {
	s.logs = append(s.logs, line)
	return nil
}

type fakeNotifier struct{ events []notify.Event }

func (f *fakeNotifier) Notify(ctx context.Context, walletID string, event notify.Event) (bool, error) {
	f.events = append(f.events, event)
	return true, nil
}

type fakeComposer struct {
	rebalanceCalls int
	openResult     pipeline.OpenResult
	openErr        error
}

func (c *fakeComposer) Rebalance(ctx context.Context, req pipeline.RebalanceRequest) (pipeline.RebalanceResult, error) {
	c.rebalanceCalls++
	return pipeline.RebalanceResult{}, nil
}

func (c *fakeComposer) OpenAtomic(ctx context.Context, req pipeline.OpenRequest) (pipeline.OpenResult, error) {
	return c.openResult, c.openErr
}

type fakeSchedAdapter struct {
	v         venue.Venue
	pool      *venue.Pool
	positions []venue.Position
}

func (a *fakeSchedAdapter) Venue() venue.Venue { return a.v }
func (a *fakeSchedAdapter) DescribePool(ctx context.Context, addr solana.PublicKey) (*venue.Pool, error) {
	return a.pool, nil
}
func (a *fakeSchedAdapter) ComputeRange(ctx context.Context, pool *venue.Pool, shape venue.RangeShape, custom *venue.Range) (venue.Range, error) {
	return venue.Range{}, nil
}
func (a *fakeSchedAdapter) QuoteLiquidity(ctx context.Context, pool *venue.Pool, rng venue.Range, in venue.Amounts, slippageBps int) (venue.LiquidityQuote, error) {
	return venue.LiquidityQuote{}, nil
}
func (a *fakeSchedAdapter) BuildOpen(ctx context.Context, pool *venue.Pool, rng venue.Range, amounts venue.Amounts, owner solana.PublicKey, dist venue.DistributionShape, vanityPrefix string) (venue.InstructionPlan, error) {
	return venue.InstructionPlan{}, nil
}
func (a *fakeSchedAdapter) BuildDecrease(ctx context.Context, pos *venue.Position, bps int, closeIfFull bool) (venue.InstructionPlan, error) {
	return venue.InstructionPlan{}, nil
}
func (a *fakeSchedAdapter) BuildCollectFees(ctx context.Context, pos *venue.Position) (venue.InstructionPlan, error) {
	return venue.InstructionPlan{}, nil
}
func (a *fakeSchedAdapter) EnumeratePositions(ctx context.Context, wallet solana.PublicKey) ([]venue.Position, error) {
	return a.positions, nil
}

// --- tests ---

// TestMonitorOutOfRangeWithoutAutoRebalance covers spec §8 scenario 4: a
// position drifts out of range but the recipient has auto-rebalance
// disabled, so exactly one OUT_OF_RANGE event fires and no rebalance is
// enqueued.
func TestMonitorOutOfRangeWithoutAutoRebalance(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()
	walletID := wallet.String()
	pool := &venue.Pool{Address: solana.NewWallet().PublicKey(), Venue: venue.DLMM, ActiveIndex: 5200}

	st := &fakeStore{
		recipientWallets: []string{walletID},
		recipients: map[string]store.Recipient{
			walletID: {
				WalletID:    walletID,
				ChatChannel: &store.ChatChannel{ChatID: "c1"},
				Prefs:       store.RecipientPrefs{AlertOnOutOfRange: true, AutoRebalance: false},
			},
		},
		tracked: map[string][]store.TrackedPosition{
			walletID: {
				{
					PositionID:  "pos-1",
					WalletID:    walletID,
					Venue:       string(venue.DLMM),
					Pool:        pool.Address.String(),
					RangeLower:  5000,
					RangeUpper:  5100,
					LastInRange: true,
				},
			},
		},
	}
	adapter := &fakeSchedAdapter{v: venue.DLMM, pool: pool}
	notifier := &fakeNotifier{}
	comp := &fakeComposer{}

	m := &Monitor{
		store:    st,
		registry: venue.Registry{venue.DLMM: adapter},
		notifier: notifier,
		composer: comp,
		interval: time.Minute,
		logger:   zap.NewNop(),
	}

	if err := m.checkPositions(context.Background()); err != nil {
		t.Fatalf("checkPositions: %v", err)
	}

	if len(notifier.events) != 1 {
		t.Fatalf("expected exactly one notify event, got %d", len(notifier.events))
	}
	if notifier.events[0].Kind != notify.OutOfRange {
		t.Fatalf("expected OUT_OF_RANGE event, got %s", notifier.events[0].Kind)
	}
	if comp.rebalanceCalls != 0 {
		t.Fatalf("expected no rebalance with auto-rebalance disabled, got %d calls", comp.rebalanceCalls)
	}
	if len(st.trackUpdates) != 1 || st.trackUpdates[0].LastInRange {
		t.Fatalf("expected tracked position updated to out of range")
	}
}

// TestMonitorBackInRangeOnlyWhenOptedIn covers the out→in transition: a
// recipient that never opted into AlertOnBackInRange gets no event.
func TestMonitorBackInRangeOnlyWhenOptedIn(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()
	walletID := wallet.String()
	pool := &venue.Pool{Address: solana.NewWallet().PublicKey(), Venue: venue.DLMM, ActiveIndex: 5050}

	st := &fakeStore{
		recipientWallets: []string{walletID},
		recipients: map[string]store.Recipient{
			walletID: {
				WalletID:    walletID,
				ChatChannel: &store.ChatChannel{ChatID: "c1"},
				Prefs:       store.RecipientPrefs{AlertOnBackInRange: false},
			},
		},
		tracked: map[string][]store.TrackedPosition{
			walletID: {
				{
					PositionID:  "pos-1",
					WalletID:    walletID,
					Venue:       string(venue.DLMM),
					Pool:        pool.Address.String(),
					RangeLower:  5000,
					RangeUpper:  5100,
					LastInRange: false,
				},
			},
		},
	}
	adapter := &fakeSchedAdapter{v: venue.DLMM, pool: pool}
	m := &Monitor{
		store:    st,
		registry: venue.Registry{venue.DLMM: adapter},
		notifier: &fakeNotifier{},
		composer: &fakeComposer{},
		logger:   zap.NewNop(),
	}

	if err := m.checkPositions(context.Background()); err != nil {
		t.Fatalf("checkPositions: %v", err)
	}
	if len(st.trackUpdates) != 1 || !st.trackUpdates[0].LastInRange {
		t.Fatalf("expected tracked position updated back to in-range")
	}
}

// TestSchedulerDCATickUpdatesBudgetAndExecutions covers spec §8 scenario
//5: a due schedule ticks, lands, and updates spent/executions/next-tick.
func TestSchedulerDCATickUpdatesBudgetAndExecutions(t *testing.T) {
	sched := store.Schedule{
		ID:             "sched-1",
		WalletID:       solana.NewWallet().PublicKey().String(),
		Venue:          string(venue.DLMM),
		Pool:           solana.NewWallet().PublicKey().String(),
		CollateralMint: solana.NewWallet().PublicKey().String(),
		AmountPerTick:  100_000_000,
		TotalBudget:    1_000_000_000,
		Spent:          300_000_000,
		TickInterval:   24 * time.Hour,
		NextTick:       time.Now().Add(-time.Minute),
		Executions:     3,
		MaxExecutions:  10,
		RangeShape:     string(venue.Concentrated),
		Status:         store.ScheduleActive,
	}

	st := &fakeStore{schedules: []store.Schedule{sched}}
	notifier := &fakeNotifier{}
	comp := &fakeComposer{openResult: pipeline.OpenResult{Outcome: submission.Outcome{BundleID: "bundle-1"}}}

	m := &Monitor{store: st, notifier: notifier, composer: comp, logger: zap.NewNop()}

	if err := m.tickSchedules(context.Background()); err != nil {
		t.Fatalf("tickSchedules: %v", err)
	}

	if len(st.savedSchedules) != 1 {
		t.Fatalf("expected one schedule save, got %d", len(st.savedSchedules))
	}
	got := st.savedSchedules[0]
	if got.Spent != 400_000_000 {
		t.Fatalf("expected spent=400000000, got %d", got.Spent)
	}
	if got.Executions != 4 {
		t.Fatalf("expected executions=4, got %d", got.Executions)
	}
	if got.Status != store.ScheduleActive {
		t.Fatalf("expected status ACTIVE, got %s", got.Status)
	}
	if !got.NextTick.After(time.Now().Add(23 * time.Hour)) {
		t.Fatalf("expected next tick roughly 24h out, got %s", got.NextTick)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("expected no notify on a non-terminal successful tick, got %d", len(notifier.events))
	}
}

// TestSchedulerDCACompletesAndNotifies covers the COMPLETE transition:
// spent reaching the budget on this tick marks the schedule COMPLETE and
// fires a DCA_COMPLETE event.
func TestSchedulerDCACompletesAndNotifies(t *testing.T) {
	sched := store.Schedule{
		ID:             "sched-done",
		WalletID:       solana.NewWallet().PublicKey().String(),
		Venue:          string(venue.DLMM),
		Pool:           solana.NewWallet().PublicKey().String(),
		CollateralMint: solana.NewWallet().PublicKey().String(),
		AmountPerTick:  100_000_000,
		TotalBudget:    500_000_000,
		Spent:          400_000_000,
		TickInterval:   24 * time.Hour,
		NextTick:       time.Now().Add(-time.Minute),
		Executions:     4,
		MaxExecutions:  10,
		RangeShape:     string(venue.Concentrated),
		Status:         store.ScheduleActive,
	}

	st := &fakeStore{schedules: []store.Schedule{sched}}
	notifier := &fakeNotifier{}
	comp := &fakeComposer{openResult: pipeline.OpenResult{Outcome: submission.Outcome{BundleID: "bundle-2"}}}

	m := &Monitor{store: st, notifier: notifier, composer: comp, logger: zap.NewNop()}

	if err := m.tickSchedules(context.Background()); err != nil {
		t.Fatalf("tickSchedules: %v", err)
	}

	got := st.savedSchedules[0]
	if got.Status != store.ScheduleComplete {
		t.Fatalf("expected COMPLETE once spent reaches budget, got %s", got.Status)
	}
	if len(notifier.events) != 1 || notifier.events[0].Kind != notify.DCAComplete {
		t.Fatalf("expected one DCA_COMPLETE event, got %+v", notifier.events)
	}
}

// TestSchedulerDCAFailsAfterRepeatedNonRetryableError covers the FAILED
// transition: a non-retryable error (INSUFFICIENT_FUNDS) that recurs after
// one prior retry moves the schedule to FAILED.
func TestSchedulerDCAFailsAfterRepeatedNonRetryableError(t *testing.T) {
	sched := store.Schedule{
		ID:             "sched-2",
		WalletID:       solana.NewWallet().PublicKey().String(),
		Venue:          string(venue.DLMM),
		Pool:           solana.NewWallet().PublicKey().String(),
		CollateralMint: solana.NewWallet().PublicKey().String(),
		AmountPerTick:  100_000_000,
		TotalBudget:    1_000_000_000,
		TickInterval:   24 * time.Hour,
		NextTick:       time.Now().Add(-time.Minute),
		MaxExecutions:  10,
		RangeShape:     string(venue.Concentrated),
		Status:         store.ScheduleActive,
		RetryCount:     1,
	}
	st := &fakeStore{schedules: []store.Schedule{sched}}
	notifier := &fakeNotifier{}
	comp := &fakeComposer{openErr: errs.New(errs.InsufficientFunds, "insufficient funds")}

	m := &Monitor{store: st, notifier: notifier, composer: comp, logger: zap.NewNop()}

	if err := m.tickSchedules(context.Background()); err != nil {
		t.Fatalf("tickSchedules: %v", err)
	}

	got := st.savedSchedules[0]
	if got.Status != store.ScheduleFailed {
		t.Fatalf("expected FAILED after repeated non-retryable error, got %s", got.Status)
	}
	if len(notifier.events) != 1 || notifier.events[0].Kind != notify.DCAFailed {
		t.Fatalf("expected one DCA_FAILED event, got %+v", notifier.events)
	}
}

// TestSchedulerDCARetriesOnceOnNonRetryableErrorBeforeFailing confirms the
// first non-retryable failure leaves the schedule ACTIVE for a same-tick
// retry next cycle, per spec §4.8.
func TestSchedulerDCARetriesOnceOnNonRetryableErrorBeforeFailing(t *testing.T) {
	sched := store.Schedule{
		ID:             "sched-3",
		WalletID:       solana.NewWallet().PublicKey().String(),
		Venue:          string(venue.DLMM),
		Pool:           solana.NewWallet().PublicKey().String(),
		CollateralMint: solana.NewWallet().PublicKey().String(),
		AmountPerTick:  100_000_000,
		TotalBudget:    1_000_000_000,
		TickInterval:   24 * time.Hour,
		NextTick:       time.Now().Add(-time.Minute),
		MaxExecutions:  10,
		RangeShape:     string(venue.Concentrated),
		Status:         store.ScheduleActive,
	}
	st := &fakeStore{schedules: []store.Schedule{sched}}
	comp := &fakeComposer{openErr: errs.New(errs.InsufficientFunds, "insufficient funds")}

	m := &Monitor{store: st, notifier: &fakeNotifier{}, composer: comp, logger: zap.NewNop()}

	if err := m.tickSchedules(context.Background()); err != nil {
		t.Fatalf("tickSchedules: %v", err)
	}

	got := st.savedSchedules[0]
	if got.Status != store.ScheduleActive {
		t.Fatalf("expected schedule to remain ACTIVE on first failure, got %s", got.Status)
	}
	if got.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", got.RetryCount)
	}
}
