package swaprouter

import (
	"testing"
	"time"
)

func TestBreakerOpensAfterThreeFailures(t *testing.T) {
	b := NewBreaker()
	for i := 0; i < failureThreshold; i++ {
		if !b.Allow() {
			t.Fatalf("breaker should still allow calls before threshold, failure %d", i)
		}
		b.RecordFailure()
	}
	if b.Allow() {
		t.Fatalf("breaker should be open after %d consecutive failures", failureThreshold)
	}
}

func TestBreakerHalfOpensAfterWindowAndClosesOnSuccess(t *testing.T) {
	b := NewBreaker()
	b.state = open
	b.openedAt = time.Now().Add(-openDuration - time.Second)

	if !b.Allow() {
		t.Fatalf("breaker should allow a half-open probe once openDuration has elapsed")
	}
	if b.state != halfOpen {
		t.Fatalf("expected state halfOpen, got %v", b.state)
	}

	b.RecordSuccess()
	if b.state != closed {
		t.Fatalf("expected state closed after successful probe, got %v", b.state)
	}
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	b := NewBreaker()
	b.state = halfOpen

	b.RecordFailure()
	if b.state != open {
		t.Fatalf("expected state open after a failed half-open probe, got %v", b.state)
	}
	if b.Allow() {
		t.Fatalf("breaker should not allow calls immediately after re-opening")
	}
}
