package scheduler

import (
	"context"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/notify"
	"github.com/solana-zh/lp-engine/internal/pipeline"
	"github.com/solana-zh/lp-engine/internal/store"
	"github.com/solana-zh/lp-engine/internal/venue"
)

// tickSchedules scans every ACTIVE Schedule and executes those whose
// next-tick time has passed (spec §4.8).
func (m *Monitor) tickSchedules(ctx context.Context) error {
	schedules, err := m.store.ListActiveSchedules(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, sched := range schedules {
		if now.Before(sched.NextTick) {
			continue
		}
		m.executeScheduleTick(ctx, sched)
	}
	return nil
}

// executeScheduleTick invokes C5's atomic-LP intent at the scheduled
// amount and applies the spec's success/failure transition rules.
func (m *Monitor) executeScheduleTick(ctx context.Context, sched store.Schedule) {
	poolAddr, err := solana.PublicKeyFromBase58(sched.Pool)
	if err != nil {
		m.onScheduleTickFailed(ctx, sched, errs.New(errs.Validation, "schedule has invalid pool address"))
		return
	}
	owner, err := solana.PublicKeyFromBase58(sched.WalletID)
	if err != nil {
		m.onScheduleTickFailed(ctx, sched, errs.New(errs.Validation, "schedule has invalid wallet address"))
		return
	}
	collateralMint, err := solana.PublicKeyFromBase58(sched.CollateralMint)
	if err != nil {
		m.onScheduleTickFailed(ctx, sched, errs.New(errs.Validation, "schedule has invalid collateral mint"))
		return
	}

	remaining := sched.TotalBudget - sched.Spent
	amount := sched.AmountPerTick
	if amount > remaining {
		amount = remaining
	}

	strategy := venue.Strategy{
		Venue:            venue.Venue(sched.Venue),
		Pool:             poolAddr,
		CollateralMint:   collateralMint,
		CollateralAmount: cosmath.NewIntFromUint64(amount),
		RangeShape:       venue.RangeShape(sched.RangeShape),
		Distribution:     venue.Spot,
		SlippageBps:      defaultRebalanceSlippageBps,
		Urgency:          venue.Fast,
	}

	result, err := m.composer.OpenAtomic(ctx, pipeline.OpenRequest{Owner: owner, Strategy: strategy})
	if err != nil {
		m.onScheduleTickFailed(ctx, sched, err)
		return
	}
	m.onScheduleTickSucceeded(ctx, sched, amount, result)
}

func (m *Monitor) onScheduleTickSucceeded(ctx context.Context, sched store.Schedule, amount uint64, result pipeline.OpenResult) {
	sched.Spent += amount
	sched.Executions++
	sched.NextTick = time.Now().Add(sched.TickInterval)
	sched.RetryCount = 0
	sched.LastError = ""
	if sched.Done() {
		sched.Status = store.ScheduleComplete
	}

	if err := m.store.SaveSchedule(ctx, sched); err != nil {
		m.logger.Warn("save schedule after tick failed", zap.Error(err))
	}
	_ = m.store.AppendHistory(ctx, sched.ID, store.HistoryEntry{
		At:      time.Now(),
		Success: true,
		Detail:  "deposit landed, bundle " + result.Outcome.BundleID,
	})

	if sched.Status == store.ScheduleComplete {
		_, nErr := m.notifier.Notify(ctx, sched.WalletID, notify.Event{
			Kind:      notify.DCAComplete,
			WalletID:  sched.WalletID,
			Pool:      sched.Pool,
			Timestamp: time.Now(),
		})
		if nErr != nil {
			m.logger.Warn("dca complete notify failed", zap.Error(nErr))
		}
	}
}

// onScheduleTickFailed applies spec §4.8's FAILED transition: a schedule
// only moves to FAILED once a non-retryable error has recurred after one
// retry; otherwise it stays ACTIVE and tries again next tick.
func (m *Monitor) onScheduleTickFailed(ctx context.Context, sched store.Schedule, tickErr error) {
	sched.LastError = tickErr.Error()

	if !errs.Retryable(errs.KindOf(tickErr)) && sched.RetryCount >= 1 {
		sched.Status = store.ScheduleFailed
	} else {
		sched.RetryCount++
		sched.NextTick = time.Now().Add(sched.TickInterval)
	}

	if err := m.store.SaveSchedule(ctx, sched); err != nil {
		m.logger.Warn("save schedule after failed tick failed", zap.Error(err))
	}
	_ = m.store.AppendHistory(ctx, sched.ID, store.HistoryEntry{
		At:      time.Now(),
		Success: false,
		Detail:  tickErr.Error(),
	})

	_, nErr := m.notifier.Notify(ctx, sched.WalletID, notify.Event{
		Kind:      notify.DCAFailed,
		WalletID:  sched.WalletID,
		Pool:      sched.Pool,
		Timestamp: time.Now(),
	})
	if nErr != nil {
		m.logger.Warn("dca failed notify failed", zap.Error(nErr))
	}
}
