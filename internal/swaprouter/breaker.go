package swaprouter

import (
	"sync"
	"time"
)

const (
	failureThreshold = 3
	openDuration     = 30 * time.Second
)

type breakerState int

const (
	closed breakerState = iota
	open
	halfOpen
)

// Breaker is a hand-rolled circuit breaker guarding the external swap
// router (SPEC_FULL.md §4.6): 3 consecutive failures open it for 30s; the
// first call after the open window is a half-open probe whose outcome
// closes or re-opens the breaker. No ecosystem circuit-breaker library
// appears anywhere in the example pack, and this state machine is small
// enough that reaching for one would be the unjustified choice here.
type Breaker struct {
	mu          sync.Mutex
	state       breakerState
	failures    int
	openedAt    time.Time
}

func NewBreaker() *Breaker {
	return &Breaker{state: closed}
}

// Allow reports whether a call may proceed right now, transitioning
// open->halfOpen once openDuration has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case closed:
		return true
	case halfOpen:
		return true
	case open:
		if time.Since(b.openedAt) >= openDuration {
			b.state = halfOpen
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess closes the breaker, whether it was closed, half-open
// (probe succeeded), or (defensively) open.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = closed
	b.failures = 0
}

// RecordFailure increments the failure count in the closed state, opening
// the breaker once failureThreshold consecutive failures accrue. A failed
// half-open probe re-opens the breaker immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == halfOpen {
		b.state = open
		b.openedAt = time.Now()
		b.failures = failureThreshold
		return
	}

	b.failures++
	if b.failures >= failureThreshold {
		b.state = open
		b.openedAt = time.Now()
	}
}
