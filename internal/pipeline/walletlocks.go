package pipeline

import (
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/lp-engine/internal/errs"
)

// WalletLocks serializes LP-mutating intents (open, withdraw, rebalance,
// claim) per wallet, so two concurrent requests against the same wallet are
// never both in C6 at once (spec §4.5's per-wallet operation lock). The
// lock is advisory and in-process only; a second request on a locked
// wallet fails fast with errs.WalletBusy rather than queueing.
type WalletLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewWalletLocks() *WalletLocks {
	return &WalletLocks{locks: make(map[string]*sync.Mutex)}
}

func (w *WalletLocks) lockFor(wallet solana.PublicKey) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := wallet.String()
	l, ok := w.locks[key]
	if !ok {
		l = &sync.Mutex{}
		w.locks[key] = l
	}
	return l
}

// TryLock attempts to acquire wallet's lock without blocking. On success it
// returns a release func the caller must defer; on contention it returns
// errs.WalletBusy.
func (w *WalletLocks) TryLock(wallet solana.PublicKey) (func(), error) {
	l := w.lockFor(wallet)
	if !l.TryLock() {
		return nil, errs.New(errs.WalletBusy, "wallet has an LP-mutating intent already in flight")
	}
	return l.Unlock, nil
}
