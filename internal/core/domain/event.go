package domain

import "time"

// EventType names a connection lifecycle transition.
type EventType string

const (
	EventConnected       EventType = "connected"
	EventDisconnected    EventType = "disconnected"
	EventRetryScheduled  EventType = "retry_scheduled"
	EventRetryExhausted  EventType = "retry_exhausted"
	EventBreakerOpened   EventType = "breaker_opened"
	EventBreakerHalfOpen EventType = "breaker_half_open"
	EventBreakerClosed   EventType = "breaker_closed"
)

// ConnectionEvent is a journal entry describing one state transition.
type ConnectionEvent struct {
	ID         string     `json:"id"`
	Type       EventType  `json:"type"`
	Source     string     `json:"source"` // initial, retry, health, operation
	RetryCount uint       `json:"retry_count"`
	Breaker    string     `json:"breaker"`
	Diagnosis  *Diagnosis `json:"diagnosis,omitempty"`
	Delay      int64      `json:"delay_ms,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}
