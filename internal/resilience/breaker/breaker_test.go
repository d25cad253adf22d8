package breaker

import (
	"testing"
	"time"

	"github.com/smashingtags/homelabarr-containers/internal/core/clock"
)

func newTestBreaker(threshold uint, open time.Duration) (*Breaker, *clock.Fake) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return New(Config{Threshold: threshold, OpenDuration: open}, clk), clk
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b, clk := newTestBreaker(3, time.Minute)

	opened := 0
	b.SetStateChangeCallback(func(from, to State) {
		if to == StateOpen {
			opened++
		}
	})

	for i := 0; i < 2; i++ {
		b.OnFailure()
		if b.State() != StateClosed {
			t.Fatalf("breaker opened early after %d failures", i+1)
		}
	}
	b.OnFailure()

	snap := b.Snapshot()
	if snap.State != StateOpen {
		t.Fatalf("expected OPEN, got %s", snap.State)
	}
	if snap.NextAttemptAt == nil {
		t.Fatal("expected nextAttemptAt to be set")
	}
	if want := clk.Now().Add(time.Minute); !snap.NextAttemptAt.Equal(want) {
		t.Errorf("nextAttemptAt = %v, want %v", snap.NextAttemptAt, want)
	}
	if b.CanAttempt() {
		t.Error("CanAttempt should be false right after opening")
	}

	// Further failures while open are ignored and never re-open.
	for i := 0; i < 5; i++ {
		b.OnFailure()
	}
	if opened != 1 {
		t.Errorf("expected exactly one Closed->Open transition, got %d", opened)
	}
	if got := b.Snapshot().ConsecutiveFailures; got != 3 {
		t.Errorf("failures while open should not count, got %d", got)
	}
}

func TestBreaker_LazyHalfOpen(t *testing.T) {
	b, clk := newTestBreaker(1, time.Minute)
	b.OnFailure()
	b.Stop() // leave only the lazy path

	clk.Advance(59 * time.Second)
	if b.CanAttempt() {
		t.Fatal("CanAttempt should be false before the cooldown elapses")
	}

	clk.Advance(time.Second)
	if !b.CanAttempt() {
		t.Fatal("CanAttempt should be true once the cooldown elapsed")
	}
	if b.State() != StateHalfOpen {
		t.Errorf("expected HALF_OPEN, got %s", b.State())
	}
}

func TestBreaker_TimerHalfOpen(t *testing.T) {
	b, clk := newTestBreaker(1, time.Minute)
	b.OnFailure()

	clk.Advance(time.Minute)
	if b.State() != StateHalfOpen {
		t.Fatalf("expected background timer to move to HALF_OPEN, got %s", b.State())
	}
}

func TestBreaker_HalfOpenSuccessCloses(t *testing.T) {
	b, clk := newTestBreaker(2, time.Minute)
	b.OnFailure()
	b.OnFailure()
	clk.Advance(time.Minute)

	if !b.CanAttempt() {
		t.Fatal("expected probe to be allowed in HALF_OPEN")
	}
	b.OnSuccess()

	snap := b.Snapshot()
	if snap.State != StateClosed {
		t.Errorf("expected CLOSED, got %s", snap.State)
	}
	if snap.ConsecutiveFailures != 0 {
		t.Errorf("expected 0 failures, got %d", snap.ConsecutiveFailures)
	}
	if snap.NextAttemptAt != nil || snap.LastFailureAt != nil {
		t.Error("expected timestamps to be cleared")
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clk := newTestBreaker(3, time.Minute)
	for i := 0; i < 3; i++ {
		b.OnFailure()
	}
	clk.Advance(time.Minute)
	if b.State() != StateHalfOpen {
		t.Fatalf("expected HALF_OPEN, got %s", b.State())
	}

	b.OnFailure()
	snap := b.Snapshot()
	if snap.State != StateOpen {
		t.Fatalf("expected OPEN after half-open failure, got %s", snap.State)
	}
	if want := clk.Now().Add(time.Minute); !snap.NextAttemptAt.Equal(want) {
		t.Errorf("expected fresh nextAttemptAt %v, got %v", want, snap.NextAttemptAt)
	}
}

func TestBreaker_SuccessResetsClosedFailures(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)
	b.OnFailure()
	b.OnFailure()
	b.OnSuccess()
	b.OnFailure()
	b.OnFailure()

	if b.State() != StateClosed {
		t.Errorf("non-consecutive failures must not open the breaker, got %s", b.State())
	}
}

func TestState_TextRoundTrip(t *testing.T) {
	for _, s := range []State{StateClosed, StateOpen, StateHalfOpen} {
		b, _ := s.MarshalText()
		var got State
		if err := got.UnmarshalText(b); err != nil || got != s {
			t.Errorf("%s: got %v, %v", s, got, err)
		}
	}
	var s State
	if err := s.UnmarshalText([]byte("SIDEWAYS")); err == nil {
		t.Error("expected error for unknown state")
	}
}
