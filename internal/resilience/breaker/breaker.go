// Package breaker implements the three-state circuit breaker that guards
// reconnection attempts against a dead daemon.
package breaker

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smashingtags/homelabarr-containers/internal/core/clock"
)

// State is the circuit breaker state.
type State int

const (
	StateClosed   State = iota // attempts allowed, failures counted
	StateOpen                  // attempts rejected until the cooldown elapses
	StateHalfOpen              // a single probing attempt allowed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the state name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "CLOSED":
		*s = StateClosed
	case "OPEN":
		*s = StateOpen
	case "HALF_OPEN":
		*s = StateHalfOpen
	default:
		return fmt.Errorf("unknown breaker state %q", b)
	}
	return nil
}

// Config holds breaker thresholds.
type Config struct {
	Threshold    uint          // consecutive failures that open the circuit
	OpenDuration time.Duration // time spent Open before probing
}

// Snapshot is a read-only copy of the breaker state.
type Snapshot struct {
	State               State      `json:"state"`
	ConsecutiveFailures uint       `json:"consecutive_failures"`
	Threshold           uint       `json:"threshold"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
	NextAttemptAt       *time.Time `json:"next_attempt_at,omitempty"`
}

// Breaker is safe for concurrent use. Its lock is a leaf: callbacks run
// after the lock is released.
type Breaker struct {
	cfg   Config
	clock clock.Clock
	log   *slog.Logger

	mu                  sync.Mutex
	state               State
	consecutiveFailures uint
	lastFailureAt       *time.Time
	nextAttemptAt       *time.Time
	timer               clock.Timer
	onChange            func(from, to State)
}

// New creates a closed breaker.
func New(cfg Config, clk clock.Clock) *Breaker {
	if cfg.Threshold == 0 {
		cfg.Threshold = 1
	}
	if clk == nil {
		clk = clock.Real
	}
	return &Breaker{
		cfg:   cfg,
		clock: clk,
		log:   slog.Default().With("component", "breaker"),
		state: StateClosed,
	}
}

// SetStateChangeCallback registers fn to be called after every transition.
func (b *Breaker) SetStateChangeCallback(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// CanAttempt reports whether a connection attempt may proceed. An Open
// breaker whose cooldown has elapsed moves to HalfOpen as a side effect.
func (b *Breaker) CanAttempt() bool {
	b.mu.Lock()
	var notify func()
	allowed := false
	switch b.state {
	case StateClosed, StateHalfOpen:
		allowed = true
	case StateOpen:
		if b.nextAttemptAt != nil && !b.clock.Now().Before(*b.nextAttemptAt) {
			notify = b.transitionLocked(StateHalfOpen)
			b.log.Info("Circuit breaker half-open after cooldown")
			allowed = true
		}
	}
	b.mu.Unlock()

	if notify != nil {
		notify()
	}
	return allowed
}

// OnSuccess closes the breaker and clears the failure count.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	prevState, prevFailures := b.state, b.consecutiveFailures
	b.consecutiveFailures = 0
	b.lastFailureAt = nil
	b.nextAttemptAt = nil
	b.stopTimerLocked()
	notify := b.transitionLocked(StateClosed)
	b.mu.Unlock()

	if prevState != StateClosed || prevFailures > 0 {
		b.log.Info("Circuit breaker reset after success",
			"previous_state", prevState.String(),
			"previous_failures", prevFailures,
		)
	}
	if notify != nil {
		notify()
	}
}

// OnFailure records a failed attempt.
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	var notify func()
	switch b.state {
	case StateOpen:
		// No attempts should be happening while open.
	case StateClosed:
		now := b.clock.Now()
		b.consecutiveFailures++
		b.lastFailureAt = &now
		if b.consecutiveFailures >= b.cfg.Threshold {
			notify = b.openLocked(now)
		}
	case StateHalfOpen:
		now := b.clock.Now()
		b.consecutiveFailures++
		b.lastFailureAt = &now
		b.log.Warn("Circuit breaker reopened after failure in half-open state",
			"consecutive_failures", b.consecutiveFailures,
		)
		notify = b.openLocked(now)
	}
	b.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// State returns the current state without triggering lazy transitions.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns a copy of the breaker state.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		Threshold:           b.cfg.Threshold,
		LastFailureAt:       copyTime(b.lastFailureAt),
		NextAttemptAt:       copyTime(b.nextAttemptAt),
	}
}

// Stop cancels the pending half-open timer.
func (b *Breaker) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopTimerLocked()
}

func (b *Breaker) openLocked(now time.Time) func() {
	next := now.Add(b.cfg.OpenDuration)
	b.nextAttemptAt = &next
	b.stopTimerLocked()
	b.timer = b.clock.AfterFunc(b.cfg.OpenDuration, b.onCooldown)

	b.log.Warn("Circuit breaker opened",
		"consecutive_failures", b.consecutiveFailures,
		"threshold", b.cfg.Threshold,
		"next_attempt_at", next.Format(time.RFC3339),
	)
	return b.transitionLocked(StateOpen)
}

func (b *Breaker) onCooldown() {
	b.mu.Lock()
	var notify func()
	if b.state == StateOpen {
		b.timer = nil
		notify = b.transitionLocked(StateHalfOpen)
		b.log.Info("Circuit breaker half-open", "open_duration", b.cfg.OpenDuration)
	}
	b.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// transitionLocked changes state and returns the callback invocation to run
// once the lock is released, or nil when nothing changed.
func (b *Breaker) transitionLocked(to State) func() {
	from := b.state
	if from == to {
		return nil
	}
	b.state = to
	fn := b.onChange
	if fn == nil {
		return nil
	}
	return func() { fn(from, to) }
}

func (b *Breaker) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
