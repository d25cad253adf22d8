package supervisor

import (
	"runtime"
	"time"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
	"github.com/smashingtags/homelabarr-containers/internal/resilience/breaker"
)

// Platform describes where the supervisor is running and how it reaches the daemon.
type Platform struct {
	OS        string           `json:"os"`
	Arch      string           `json:"arch"`
	Transport domain.Transport `json:"transport"`
	Endpoint  string           `json:"endpoint"`
}

// ConfigSummary echoes the active configuration.
type ConfigSummary struct {
	Endpoint            string `json:"endpoint"`
	Timeout             string `json:"timeout"`
	ReconnectAttempts   uint   `json:"reconnect_attempts"`
	RetryDelay          string `json:"retry_delay"`
	MaxRetryDelay       string `json:"max_retry_delay"`
	HealthCheckInterval string `json:"health_check_interval"`
	BreakerThreshold    uint   `json:"breaker_threshold"`
	BreakerTimeout      string `json:"breaker_timeout"`
}

// Stats is the detailed connection report.
type Stats struct {
	CurrentState   string            `json:"current_state"`
	LastSuccessAt  *time.Time        `json:"last_success_at,omitempty"`
	RetryCount     uint              `json:"retry_count"`
	Retrying       bool              `json:"retrying"`
	NextRetryAt    *time.Time        `json:"next_retry_at,omitempty"`
	UptimeMs       int64             `json:"uptime_ms"`
	LastError      *domain.Diagnosis `json:"last_error,omitempty"`
	CircuitBreaker breaker.Snapshot  `json:"circuit_breaker"`
	Platform       Platform          `json:"platform"`
	Config         ConfigSummary     `json:"config"`
}

// IsConnected reports whether the daemon connection is up.
func (s *Supervisor) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Connected
}

// ConnectionState returns a copy of the connection state.
func (s *Supervisor) ConnectionState() domain.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// BreakerSnapshot returns a copy of the circuit breaker state.
func (s *Supervisor) BreakerSnapshot() breaker.Snapshot {
	return s.breaker.Snapshot()
}

// ServiceStatus summarises availability for consumers.
func (s *Supervisor) ServiceStatus() domain.ServiceReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return serviceReport(s.state)
}

func serviceReport(st domain.ConnectionState) domain.ServiceReport {
	switch {
	case st.Connected:
		return domain.ServiceReport{
			Status:  domain.ServiceAvailable,
			Message: "Docker service is running normally",
		}
	case st.Retrying && st.LastError != nil && st.LastError.Recoverable:
		return domain.ServiceReport{
			Status:  domain.ServiceDegraded,
			Message: "Docker service is temporarily unavailable, retrying connection",
		}
	case st.LastError != nil && !st.LastError.Recoverable:
		return domain.ServiceReport{
			Status:  domain.ServiceUnavailable,
			Message: st.LastError.UserMessage,
		}
	default:
		return domain.ServiceReport{
			Status:  domain.ServiceUnknown,
			Message: "Docker service status unknown",
		}
	}
}

// ConnectionStats returns the detailed report used by diagnostics.
func (s *Supervisor) ConnectionStats() Stats {
	s.mu.Lock()
	st := s.snapshotLocked()
	s.mu.Unlock()

	stats := Stats{
		CurrentState:   "disconnected",
		LastSuccessAt:  st.LastSuccessAt,
		RetryCount:     st.RetryCount,
		Retrying:       st.Retrying,
		NextRetryAt:    st.NextRetryAt,
		LastError:      st.LastError,
		CircuitBreaker: s.breaker.Snapshot(),
		Platform: Platform{
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			Transport: s.cfg.Endpoint.Transport,
			Endpoint:  s.cfg.Endpoint.String(),
		},
		Config: ConfigSummary{
			Endpoint:            s.cfg.Endpoint.String(),
			Timeout:             s.cfg.Timeout.String(),
			ReconnectAttempts:   s.cfg.ReconnectAttempts,
			RetryDelay:          s.cfg.RetryDelay.String(),
			MaxRetryDelay:       s.cfg.MaxRetryDelay.String(),
			HealthCheckInterval: s.cfg.HealthCheckInterval.String(),
			BreakerThreshold:    s.cfg.BreakerThreshold,
			BreakerTimeout:      s.cfg.BreakerTimeout.String(),
		},
	}
	if st.Connected {
		stats.CurrentState = "connected"
	}
	if st.LastSuccessAt != nil {
		stats.UptimeMs = s.clock.Now().Sub(*st.LastSuccessAt).Milliseconds()
	}
	return stats
}

// LogStats writes a one-line connection summary.
func (s *Supervisor) LogStats() {
	st := s.ConnectionStats()
	args := []any{
		"state", st.CurrentState,
		"retry_count", st.RetryCount,
		"retrying", st.Retrying,
		"breaker", st.CircuitBreaker.State.String(),
		"consecutive_failures", st.CircuitBreaker.ConsecutiveFailures,
		"uptime", time.Duration(st.UptimeMs) * time.Millisecond,
	}
	if st.LastError != nil {
		args = append(args, "kind", st.LastError.Kind, "recoverable", st.LastError.Recoverable)
	}
	s.log.Info("Docker connection stats", args...)
}

func (s *Supervisor) lastError() *domain.Diagnosis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyDiagnosis(s.state.LastError)
}

func (s *Supervisor) snapshotLocked() domain.ConnectionState {
	st := s.state
	st.LastError = copyDiagnosis(st.LastError)
	if st.LastSuccessAt != nil {
		t := *st.LastSuccessAt
		st.LastSuccessAt = &t
	}
	if st.NextRetryAt != nil {
		t := *st.NextRetryAt
		st.NextRetryAt = &t
	}
	return st
}

func copyDiagnosis(d *domain.Diagnosis) *domain.Diagnosis {
	if d == nil {
		return nil
	}
	cp := *d
	return &cp
}
