package supervisor

import (
	"context"
	"time"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
	"github.com/smashingtags/homelabarr-containers/internal/metrics"
)

// scheduleRetryLocked arms the reconnection timer. It does nothing while a
// timer is already pending and stops retrying when the breaker refuses.
func (s *Supervisor) scheduleRetryLocked(source string) {
	if s.closed || s.sched.Pending() {
		return
	}

	if !s.breaker.CanAttempt() {
		s.state.Retrying = false
		s.state.NextRetryAt = nil
		s.log.Warn("Retry blocked by circuit breaker",
			"retry_count", s.state.RetryCount,
			"next_attempt_at", s.breaker.Snapshot().NextAttemptAt,
		)
		return
	}

	delay, at, ok := s.sched.Schedule(s.state.RetryCount, s.onRetryTimer)
	if !ok {
		return
	}
	s.state.Retrying = true
	s.state.NextRetryAt = &at

	metrics.RetriesScheduledTotal.Inc()
	s.log.Info("Scheduled Docker reconnection",
		"attempt", s.state.RetryCount+1,
		"max_retries", s.cfg.ReconnectAttempts,
		"delay", delay,
		"next_retry_at", at.Format(time.RFC3339),
	)
	s.events.Record(domain.ConnectionEvent{
		Type:       domain.EventRetryScheduled,
		Source:     source,
		RetryCount: s.state.RetryCount,
		Breaker:    s.breaker.State().String(),
		Delay:      delay.Milliseconds(),
	})
}

// onRetryTimer runs on the timer goroutine when a scheduled retry is due.
func (s *Supervisor) onRetryTimer(gen uint64) {
	s.mu.Lock()
	if s.closed || !s.sched.Fired(gen) {
		s.mu.Unlock()
		return
	}

	s.state.RetryCount++
	metrics.RetryCount.Set(float64(s.state.RetryCount))
	s.log.Info("Executing reconnection attempt",
		"attempt", s.state.RetryCount,
		"max_retries", s.cfg.ReconnectAttempts,
	)

	if err := s.beginAttemptLocked("retry"); err != nil {
		// Nothing will fire again unless another path reschedules.
		if !s.sched.Pending() && !s.state.Connected {
			s.state.Retrying = false
			s.state.NextRetryAt = nil
		}
		s.mu.Unlock()
		s.log.Debug("Reconnection attempt skipped", "reason", err)
		return
	}
	s.mu.Unlock()

	_ = s.runAttempt(context.Background(), "retry")
}
