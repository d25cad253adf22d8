package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DaemonConnected is 1 while the supervisor holds a live daemon connection
	DaemonConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homelabarr_daemon_connected",
			Help: "Whether the Docker daemon connection is up (1) or down (0)",
		},
	)

	// ConnectionAttemptsTotal tracks connection attempts by trigger and outcome
	ConnectionAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homelabarr_daemon_connection_attempts_total",
			Help: "Total number of daemon connection attempts",
		},
		[]string{"source", "result"},
	)

	// ConnectionFailuresTotal tracks classified failures
	ConnectionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homelabarr_daemon_failures_total",
			Help: "Total number of classified daemon failures",
		},
		[]string{"kind", "recoverable"},
	)

	// RetriesScheduledTotal tracks scheduled reconnection retries
	RetriesScheduledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homelabarr_daemon_retries_scheduled_total",
			Help: "Total number of scheduled reconnection retries",
		},
	)

	// RetryCount mirrors the supervisor's current retry counter
	RetryCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homelabarr_daemon_retry_count",
			Help: "Current reconnection retry count",
		},
	)

	// BreakerState is 0 closed, 1 open, 2 half-open
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homelabarr_daemon_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
	)

	// BreakerTransitionsTotal counts breaker state changes
	BreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homelabarr_daemon_breaker_transitions_total",
			Help: "Total number of circuit breaker transitions",
		},
		[]string{"to"},
	)

	// OperationsTotal tracks resilient daemon operations by outcome
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homelabarr_daemon_operations_total",
			Help: "Total number of daemon operations",
		},
		[]string{"operation", "result"},
	)

	// OperationLatency tracks daemon operation latency including retries
	OperationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homelabarr_daemon_operation_latency_seconds",
			Help:    "Daemon operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// JournalDroppedTotal counts events dropped because the journal queue was full
	JournalDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homelabarr_journal_dropped_events_total",
			Help: "Total number of connection events dropped by the journal",
		},
	)
)
