package domain

import "time"

// ConnectionState is a point-in-time copy of the supervisor's connection state.
type ConnectionState struct {
	Connected     bool       `json:"connected"`
	LastError     *Diagnosis `json:"last_error,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	RetryCount    uint       `json:"retry_count"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	Retrying      bool       `json:"retrying"`
}

// ServiceStatus summarises daemon availability for consumers.
type ServiceStatus string

const (
	ServiceAvailable   ServiceStatus = "available"
	ServiceDegraded    ServiceStatus = "degraded"
	ServiceUnavailable ServiceStatus = "unavailable"
	ServiceUnknown     ServiceStatus = "unknown"
)

// ServiceReport pairs a status with a human-readable explanation.
type ServiceReport struct {
	Status  ServiceStatus `json:"status"`
	Message string        `json:"message"`
}
