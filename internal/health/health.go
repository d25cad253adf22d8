// Package health exposes the daemon connection status over HTTP.
package health

import (
	"time"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
	"github.com/smashingtags/homelabarr-containers/internal/infra/docker"
	"github.com/smashingtags/homelabarr-containers/internal/resilience/breaker"
	"github.com/smashingtags/homelabarr-containers/internal/resilience/classify"
	"github.com/smashingtags/homelabarr-containers/internal/resilience/supervisor"
)

// SystemStatus is the overall service state reported by /health.
type SystemStatus string

const (
	StatusOK       SystemStatus = "OK"
	StatusDegraded SystemStatus = "DEGRADED"
	StatusError    SystemStatus = "ERROR"
)

// RetryInfo describes the reconnection cycle.
type RetryInfo struct {
	Retrying    bool       `json:"retrying"`
	Attempt     uint       `json:"attempt"`
	MaxAttempts uint       `json:"max_attempts"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
}

// Report is the /health response body.
type Report struct {
	Status         SystemStatus           `json:"status"`
	Service        domain.ServiceStatus   `json:"service"`
	Message        string                 `json:"message"`
	Reason         string                 `json:"reason,omitempty"`
	Connection     domain.ConnectionState `json:"connection"`
	CircuitBreaker breaker.Snapshot       `json:"circuit_breaker"`
	Retry          *RetryInfo             `json:"retry,omitempty"`
	Resolution     string                 `json:"resolution,omitempty"`
	Docker         *docker.VersionInfo    `json:"docker,omitempty"`
	CheckError     *domain.Diagnosis      `json:"check_error,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
}

// DetailedReport adds diagnostics to Report.
type DetailedReport struct {
	Report
	Daemon          *docker.SystemInfo        `json:"daemon,omitempty"`
	Stats           supervisor.Stats          `json:"stats"`
	Troubleshooting *classify.Troubleshooting `json:"troubleshooting,omitempty"`
	RecentEvents    []*domain.ConnectionEvent `json:"recent_events,omitempty"`
}
