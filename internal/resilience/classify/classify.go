// Package classify turns raw daemon transport and protocol failures into
// structured diagnoses.
//
// Transport-specific rules run first (socket or named pipe), then the
// cross-transport rules for timeouts, dropped connections and HTTP status
// codes override whatever the transport rules decided.
package classify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
	"github.com/smashingtags/homelabarr-containers/internal/infra/docker"
)

// Symbolic error codes recorded in Diagnosis.Code.
const (
	CodeNotFound     = "ENOENT"
	CodePermission   = "EACCES"
	CodeRefused      = "ECONNREFUSED"
	CodeHostNotFound = "ENOTFOUND"
	CodeTimeout      = "ETIMEDOUT"
	CodeBrokenPipe   = "EPIPE"
	CodeReset        = "ECONNRESET"
	CodePipeBusy     = "EPIPEBUSY"
	CodeUnsupported  = "ENOTSUP"
	CodeUnknown      = "UNKNOWN"
)

// HTTPStatusError is implemented by protocol errors that carry the daemon's
// HTTP status code.
type HTTPStatusError interface {
	error
	HTTPStatus() int
}

// Classifier maps errors to diagnoses. The zero value uses the wall clock.
type Classifier struct {
	Now func() time.Time
}

// Classify diagnoses err using the wall clock.
func Classify(err error, transport domain.Transport) domain.Diagnosis {
	return Classifier{}.Classify(err, transport)
}

// Classify diagnoses err observed on the given transport.
func (c Classifier) Classify(err error, transport domain.Transport) domain.Diagnosis {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	code := errorCode(err)
	d := domain.Diagnosis{
		Kind:        domain.KindUnknown,
		Code:        code,
		Recoverable: true,
		Severity:    domain.SeverityMedium,
		UserMessage: "Docker service is temporarily unavailable",
		OccurredAt:  now(),
		Transport:   transport,
	}
	if err != nil {
		d.Message = err.Error()
	}
	if d.Code == "" {
		d.Code = CodeUnknown
	}

	// A pipe endpoint on a platform without named pipes is a configuration
	// error, not a daemon that is still starting.
	if errors.Is(err, docker.ErrPipeUnsupported) {
		d.Code = CodeUnsupported
		set(&d, domain.KindPipeNotFound, false, domain.SeverityHigh,
			"Named pipe endpoints are only available on Windows. Please point DOCKER_HOST at a unix socket.")
		return d
	}

	if transport == domain.TransportPipe {
		classifyPipe(err, code, &d)
	} else {
		classifySocket(err, code, &d)
	}
	classifyCommon(err, code, &d)

	return d
}

func classifySocket(err error, code string, d *domain.Diagnosis) {
	switch code {
	case CodePermission:
		set(d, domain.KindSocketPermissionDenied, false, domain.SeverityHigh,
			"Docker socket permission denied. Please check container user is in docker group.")
	case CodeNotFound:
		set(d, domain.KindSocketNotFound, false, domain.SeverityHigh,
			"Docker socket not found. Please ensure Docker is installed and socket is mounted.")
	case CodeRefused:
		set(d, domain.KindDaemonNotRunning, true, domain.SeverityMedium,
			"Cannot connect to Docker daemon. Docker daemon may be starting up.")
	case CodeHostNotFound:
		set(d, domain.KindHostNotFound, true, domain.SeverityMedium,
			"Docker host not found. Please check Docker configuration.")
	}
}

func classifyPipe(err error, code string, d *domain.Diagnosis) {
	msg := lowerMessage(err)
	switch {
	case code == CodeNotFound:
		set(d, domain.KindPipeNotFound, false, domain.SeverityHigh,
			"Docker Desktop named pipe not found. Please ensure Docker Desktop is running.")
	case code == CodePermission:
		set(d, domain.KindPipePermissionDenied, false, domain.SeverityHigh,
			"Access denied to Docker Desktop named pipe. Please check Docker Desktop permissions.")
	case code == CodeRefused || code == CodePipeBusy:
		set(d, domain.KindDaemonNotRunning, true, domain.SeverityMedium,
			"Cannot connect to Docker Desktop. Please ensure Docker Desktop is running and fully started.")
	case strings.Contains(msg, "hyperv") || strings.Contains(msg, "hyper-v"):
		set(d, domain.KindHypervisorUnavailable, false, domain.SeverityHigh,
			"Hyper-V related error. Please check Docker Desktop and Hyper-V configuration.")
	case strings.Contains(msg, "pipe"):
		set(d, domain.KindDaemonNotRunning, true, domain.SeverityMedium,
			"Windows named pipe connection error. Docker Desktop may be starting up.")
	}
}

func classifyCommon(err error, code string, d *domain.Diagnosis) {
	msg := lowerMessage(err)

	var statusErr HTTPStatusError
	switch {
	case isTimeout(err, code):
		d.Code = CodeTimeout
		set(d, domain.KindTimeout, true, domain.SeverityLow,
			"Docker operation timed out. Retrying...")
	case code == CodeBrokenPipe || strings.Contains(msg, "broken pipe"):
		set(d, domain.KindBrokenPipe, true, domain.SeverityMedium,
			"Docker connection was interrupted. Reconnecting...")
	case code == CodeReset || isHangup(err, msg):
		set(d, domain.KindSocketHangup, true, domain.SeverityLow,
			"Docker connection was reset. Retrying...")
	case errors.As(err, &statusErr) && statusErr.HTTPStatus() >= 400 && statusErr.HTTPStatus() < 500:
		d.Code = httpCode(statusErr)
		set(d, domain.KindClientError, false, domain.SeverityMedium,
			"Invalid Docker operation request.")
	case errors.As(err, &statusErr) && statusErr.HTTPStatus() >= 500:
		d.Code = httpCode(statusErr)
		set(d, domain.KindServerError, true, domain.SeverityHigh,
			"Docker daemon encountered an internal error.")
	}
}

func httpCode(err HTTPStatusError) string {
	return fmt.Sprintf("HTTP_%d", err.HTTPStatus())
}

func set(d *domain.Diagnosis, kind domain.Kind, recoverable bool, sev domain.Severity, msg string) {
	d.Kind = kind
	d.Recoverable = recoverable
	d.Severity = sev
	d.UserMessage = msg
}

func isTimeout(err error, code string) bool {
	if err == nil {
		return false
	}
	if code == CodeTimeout {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func isHangup(err error, msg string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	return strings.Contains(msg, "socket hang up") || strings.Contains(msg, "connection reset")
}

// errorCode extracts a symbolic code from err, preferring errno values from
// the OS table and falling back to well-known message fragments.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := errnoCode(err); code != "" {
		return code
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && (dnsErr.IsNotFound || !dnsErr.IsTimeout) {
		return CodeHostNotFound
	}
	if errors.Is(err, fs.ErrNotExist) {
		return CodeNotFound
	}
	if errors.Is(err, fs.ErrPermission) {
		return CodePermission
	}

	msg := lowerMessage(err)
	switch {
	case strings.Contains(msg, "no such file or directory"),
		strings.Contains(msg, "cannot find the file specified"):
		return CodeNotFound
	case strings.Contains(msg, "permission denied"), strings.Contains(msg, "access is denied"):
		return CodePermission
	case strings.Contains(msg, "connection refused"):
		return CodeRefused
	case strings.Contains(msg, "all pipe instances are busy"):
		return CodePipeBusy
	case strings.Contains(msg, "no such host"):
		return CodeHostNotFound
	}
	if errors.Is(err, docker.ErrDaemonUnreachable) {
		return CodeRefused
	}
	return ""
}

func lowerMessage(err error) string {
	if err == nil {
		return ""
	}
	return strings.ToLower(err.Error())
}
