package supervisor

import (
	"context"
)

// healthTick runs every HealthCheckInterval. A connected supervisor probes
// the daemon; a disconnected one that is idle with retry budget left and a
// recoverable last error starts a fresh reconnection cycle.
func (s *Supervisor) healthTick() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.healthTimer = s.clock.AfterFunc(s.cfg.HealthCheckInterval, s.healthTick)

	switch {
	case s.connecting:
		s.mu.Unlock()
		s.log.Debug("Health check skipped, connection attempt in progress")

	case s.state.Connected:
		s.connecting = true
		s.mu.Unlock()
		s.probeConnected(context.Background())

	case !s.state.Retrying &&
		s.state.RetryCount < s.cfg.ReconnectAttempts &&
		s.state.LastError != nil && s.state.LastError.Recoverable:
		s.log.Info("Health check triggered reconnection",
			"kind", s.state.LastError.Kind,
			"retry_count", s.state.RetryCount,
		)
		s.state.RetryCount = 0
		if err := s.beginAttemptLocked("health"); err != nil {
			s.mu.Unlock()
			s.log.Debug("Health check reconnection skipped", "reason", err)
			return
		}
		s.mu.Unlock()
		_ = s.runAttempt(context.Background(), "health")

	default:
		retrying, count := s.state.Retrying, s.state.RetryCount
		s.mu.Unlock()
		s.log.Debug("Health check skipped",
			"retrying", retrying,
			"retry_count", count,
			"max_retries", s.cfg.ReconnectAttempts,
		)
	}
}

// probeConnected checks a live connection. The caller must hold the
// in-flight slot.
func (s *Supervisor) probeConnected(ctx context.Context) {
	probeCtx, cancel := s.withTimeout(ctx)
	err := s.client.Probe(probeCtx)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.connecting = false
	if s.closed {
		return
	}
	if err != nil {
		if s.state.Connected {
			s.log.Warn("Docker health check failed, connection may be lost", "error", err)
			s.handleFailureLocked(err, "health")
		}
		return
	}
	s.log.Debug("Docker health check passed")
}
