package domain

import "time"

// Transport identifies the local IPC channel used to reach the daemon.
type Transport string

const (
	TransportSocket Transport = "socket" // Unix domain socket
	TransportPipe   Transport = "pipe"   // Windows named pipe
)

// Kind is the classified category of a daemon failure.
type Kind string

const (
	KindTimeout      Kind = "timeout"
	KindBrokenPipe   Kind = "broken_pipe"
	KindSocketHangup Kind = "socket_hangup"
	KindClientError  Kind = "client_error"
	KindServerError  Kind = "server_error"

	// Unix-style transport
	KindSocketNotFound         Kind = "socket-not-found"
	KindSocketPermissionDenied Kind = "socket-permission-denied"
	KindHostNotFound           Kind = "host-not-found"

	// Windows-style transport
	KindPipeNotFound          Kind = "pipe-not-found"
	KindPipePermissionDenied  Kind = "pipe-permission-denied"
	KindHypervisorUnavailable Kind = "hypervisor-unavailable"

	// Both transports
	KindDaemonNotRunning Kind = "daemon-not-running"

	KindUnknown Kind = "unknown"
)

// IsConnectionCategory reports whether a failure of this kind means the
// connection itself is gone, as opposed to a single bad request.
func (k Kind) IsConnectionCategory() bool {
	switch k {
	case KindTimeout, KindBrokenPipe, KindSocketHangup, KindDaemonNotRunning:
		return true
	}
	return false
}

// Severity ranks how disruptive a failure is for the user.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Diagnosis is the classified, immutable result of inspecting a raw failure.
type Diagnosis struct {
	Kind        Kind      `json:"kind"`
	Code        string    `json:"code"`
	Message     string    `json:"message"`
	Recoverable bool      `json:"recoverable"`
	Severity    Severity  `json:"severity"`
	UserMessage string    `json:"user_message"`
	OccurredAt  time.Time `json:"occurred_at"`
	Transport   Transport `json:"transport"`
}
