package supervisor

import (
	"errors"
	"fmt"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
)

var (
	// ErrConnectionUnavailable is returned when an operation is attempted
	// while the daemon is disconnected and the caller does not accept a fallback.
	ErrConnectionUnavailable = errors.New("docker connection unavailable")

	// ErrBreakerOpen is returned when the circuit breaker rejects an attempt.
	ErrBreakerOpen = errors.New("circuit breaker is open")

	// ErrShutdown is returned after Shutdown.
	ErrShutdown = errors.New("supervisor is shut down")

	// ErrAttemptInFlight is returned when another connection attempt is running.
	ErrAttemptInFlight = errors.New("connection attempt already in progress")
)

// UnavailableError reports an operation rejected because the daemon is
// disconnected. It matches ErrConnectionUnavailable with errors.Is.
type UnavailableError struct {
	Op        string
	Status    domain.ServiceReport
	LastError *domain.Diagnosis
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Status.Message)
}

func (e *UnavailableError) Unwrap() error { return ErrConnectionUnavailable }

// DaemonError is a failed daemon call together with its diagnosis.
type DaemonError struct {
	Op        string
	Diagnosis domain.Diagnosis
	Err       error
}

func (e *DaemonError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Diagnosis.Kind, e.Err)
}

func (e *DaemonError) Unwrap() error { return e.Err }

// DiagnosisOf extracts the diagnosis carried by err, if any.
func DiagnosisOf(err error) (domain.Diagnosis, bool) {
	var de *DaemonError
	if errors.As(err, &de) {
		return de.Diagnosis, true
	}
	var ue *UnavailableError
	if errors.As(err, &ue) && ue.LastError != nil {
		return *ue.LastError, true
	}
	return domain.Diagnosis{}, false
}
