// Package backoff computes reconnection delays and owns the single pending
// retry timer.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/smashingtags/homelabarr-containers/internal/core/clock"
)

// DefaultJitter is the upper bound of the random fraction added to each delay.
const DefaultJitter = 0.1

// Policy is exponential backoff with proportional jitter.
type Policy struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    float64

	// Rand returns a value in [0, 1). Defaults to math/rand/v2.
	Rand func() float64
}

// NextDelay returns min(base * 2^retryCount * (1 + U(0, jitter)), max).
func (p Policy) NextDelay(retryCount uint) time.Duration {
	r := rand.Float64
	if p.Rand != nil {
		r = p.Rand
	}

	delay := float64(p.BaseDelay) * math.Pow(2, float64(retryCount))
	delay *= 1 + r()*p.Jitter
	if p.MaxDelay > 0 && (delay >= float64(p.MaxDelay) || math.IsInf(delay, 1)) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Scheduler arms at most one retry timer at a time. It is not safe for
// concurrent use; the owner serializes calls under its own lock.
type Scheduler struct {
	policy Policy
	clock  clock.Clock

	timer clock.Timer
	gen   uint64
}

// NewScheduler creates a scheduler using clk for timers.
func NewScheduler(p Policy, clk clock.Clock) *Scheduler {
	if clk == nil {
		clk = clock.Real
	}
	return &Scheduler{policy: p, clock: clk}
}

// Policy returns the delay policy.
func (s *Scheduler) Policy() Policy { return s.policy }

// Pending reports whether a retry timer is armed.
func (s *Scheduler) Pending() bool { return s.timer != nil }

// Schedule arms a timer that calls fire with its generation after the delay
// for retryCount. It is a no-op returning ok=false while a timer is pending.
func (s *Scheduler) Schedule(retryCount uint, fire func(gen uint64)) (delay time.Duration, at time.Time, ok bool) {
	if s.timer != nil {
		return 0, time.Time{}, false
	}
	delay = s.policy.NextDelay(retryCount)
	at = s.clock.Now().Add(delay)
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(delay, func() { fire(gen) })
	return delay, at, true
}

// Fired marks the timer for gen as consumed. It returns false when gen is
// stale, i.e. the timer was cancelled after it had already started firing.
func (s *Scheduler) Fired(gen uint64) bool {
	if gen != s.gen || s.timer == nil {
		return false
	}
	s.timer = nil
	return true
}

// Cancel stops the pending timer, if any.
func (s *Scheduler) Cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}
