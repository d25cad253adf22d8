package classify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
	"github.com/smashingtags/homelabarr-containers/internal/infra/docker"
)

type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("daemon returned %d", e.code) }
func (e statusErr) HTTPStatus() int { return e.code }

func dialErr(errno syscall.Errno) error {
	return &net.OpError{
		Op:  "dial",
		Net: "unix",
		Err: &os.SyscallError{Syscall: "connect", Err: errno},
	}
}

func TestClassify_Socket(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		kind        domain.Kind
		recoverable bool
		severity    domain.Severity
	}{
		{"permission", dialErr(syscall.EACCES), domain.KindSocketPermissionDenied, false, domain.SeverityHigh},
		{"missing socket", dialErr(syscall.ENOENT), domain.KindSocketNotFound, false, domain.SeverityHigh},
		{"refused", dialErr(syscall.ECONNREFUSED), domain.KindDaemonNotRunning, true, domain.SeverityMedium},
		{"dns", &net.DNSError{Err: "no such host", Name: "docker", IsNotFound: true}, domain.KindHostNotFound, true, domain.SeverityMedium},
		{"deadline", context.DeadlineExceeded, domain.KindTimeout, true, domain.SeverityLow},
		{"wrapped deadline", fmt.Errorf("probe: %w", context.DeadlineExceeded), domain.KindTimeout, true, domain.SeverityLow},
		{"epipe", dialErr(syscall.EPIPE), domain.KindBrokenPipe, true, domain.SeverityMedium},
		{"reset", dialErr(syscall.ECONNRESET), domain.KindSocketHangup, true, domain.SeverityLow},
		{"eof", fmt.Errorf("get containers: %w", io.EOF), domain.KindSocketHangup, true, domain.SeverityLow},
		{"404", statusErr{404}, domain.KindClientError, false, domain.SeverityMedium},
		{"500", statusErr{500}, domain.KindServerError, true, domain.SeverityHigh},
		{"unknown", errors.New("something odd"), domain.KindUnknown, true, domain.SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Classify(tt.err, domain.TransportSocket)
			if d.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", d.Kind, tt.kind)
			}
			if d.Recoverable != tt.recoverable {
				t.Errorf("recoverable = %v, want %v", d.Recoverable, tt.recoverable)
			}
			if d.Severity != tt.severity {
				t.Errorf("severity = %s, want %s", d.Severity, tt.severity)
			}
			if d.Transport != domain.TransportSocket {
				t.Errorf("transport = %s", d.Transport)
			}
			if d.UserMessage == "" {
				t.Error("expected a user message")
			}
		})
	}
}

func TestClassify_Pipe(t *testing.T) {
	tests := []struct {
		err         error
		kind        domain.Kind
		recoverable bool
	}{
		{&os.PathError{Op: "open", Path: `\\.\pipe\docker_engine`, Err: os.ErrNotExist}, domain.KindPipeNotFound, false},
		{&os.PathError{Op: "open", Path: `\\.\pipe\docker_engine`, Err: os.ErrPermission}, domain.KindPipePermissionDenied, false},
		{errors.New("open //./pipe/docker_engine: All pipe instances are busy."), domain.KindDaemonNotRunning, true},
		{errors.New("hyperv: virtual machine management service not running"), domain.KindHypervisorUnavailable, false},
		{errors.New("named pipe handshake failed"), domain.KindDaemonNotRunning, true},
		{errors.New("write: broken pipe"), domain.KindBrokenPipe, true},
	}

	for _, tt := range tests {
		d := Classify(tt.err, domain.TransportPipe)
		if d.Kind != tt.kind || d.Recoverable != tt.recoverable {
			t.Errorf("Classify(%q) = %s/%v, want %s/%v", tt.err, d.Kind, d.Recoverable, tt.kind, tt.recoverable)
		}
	}
}

func TestClassify_SameErrnoDiffersByTransport(t *testing.T) {
	err := &os.PathError{Op: "open", Path: "docker", Err: os.ErrNotExist}

	if d := Classify(err, domain.TransportSocket); d.Kind != domain.KindSocketNotFound {
		t.Errorf("socket: got %s", d.Kind)
	}
	if d := Classify(err, domain.TransportPipe); d.Kind != domain.KindPipeNotFound {
		t.Errorf("pipe: got %s", d.Kind)
	}
}

func TestClassify_CodeAndClock(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := Classifier{Now: func() time.Time { return at }}

	d := c.Classify(dialErr(syscall.ECONNREFUSED), domain.TransportSocket)
	if d.Code != CodeRefused {
		t.Errorf("code = %s, want %s", d.Code, CodeRefused)
	}
	if !d.OccurredAt.Equal(at) {
		t.Errorf("occurredAt = %v, want %v", d.OccurredAt, at)
	}

	d = c.Classify(errors.New("mystery"), domain.TransportSocket)
	if d.Code != CodeUnknown {
		t.Errorf("code = %s, want %s", d.Code, CodeUnknown)
	}
}

func TestClassify_Codes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"context deadline", context.DeadlineExceeded, CodeTimeout},
		{"net timeout", &net.OpError{Op: "read", Net: "unix", Err: os.ErrDeadlineExceeded}, CodeTimeout},
		{"http 404", statusErr{404}, "HTTP_404"},
		{"http 503", statusErr{503}, "HTTP_503"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d := Classify(tt.err, domain.TransportSocket); d.Code != tt.code {
				t.Errorf("code = %s, want %s", d.Code, tt.code)
			}
		})
	}
}

func TestClassify_PipeOnUnsupportedPlatform(t *testing.T) {
	err := fmt.Errorf("docker containers/json: %w: %w", docker.ErrDaemonUnreachable, docker.ErrPipeUnsupported)

	d := Classify(err, domain.TransportPipe)
	if d.Kind != domain.KindPipeNotFound || d.Recoverable {
		t.Errorf("got %s recoverable=%v, want permanent %s", d.Kind, d.Recoverable, domain.KindPipeNotFound)
	}
	if d.Code != CodeUnsupported {
		t.Errorf("code = %s, want %s", d.Code, CodeUnsupported)
	}
	if strings.Contains(d.UserMessage, "starting up") {
		t.Errorf("misleading message %q", d.UserMessage)
	}
}

func TestClassify_DaemonUnreachable(t *testing.T) {
	err := fmt.Errorf("docker containers/json: %w: %w", docker.ErrDaemonUnreachable,
		errors.New("Cannot connect to the Docker daemon at unix:///var/run/docker.sock. Is the docker daemon running?"))

	d := Classify(err, domain.TransportSocket)
	if d.Kind != domain.KindDaemonNotRunning || !d.Recoverable {
		t.Errorf("got %s recoverable=%v", d.Kind, d.Recoverable)
	}

	errno := fmt.Errorf("docker containers/json: %w: %w", docker.ErrDaemonUnreachable, dialErr(syscall.ENOENT))
	if d := Classify(errno, domain.TransportSocket); d.Kind != domain.KindSocketNotFound {
		t.Errorf("errno should win over the unreachable marker, got %s", d.Kind)
	}
}

func TestKind_IsConnectionCategory(t *testing.T) {
	for _, k := range []domain.Kind{domain.KindTimeout, domain.KindBrokenPipe, domain.KindSocketHangup, domain.KindDaemonNotRunning} {
		if !k.IsConnectionCategory() {
			t.Errorf("%s should be connection category", k)
		}
	}
	for _, k := range []domain.Kind{domain.KindClientError, domain.KindServerError, domain.KindUnknown, domain.KindSocketPermissionDenied} {
		if k.IsConnectionCategory() {
			t.Errorf("%s should not be connection category", k)
		}
	}
}

func TestTroubleshoot(t *testing.T) {
	d := Classify(dialErr(syscall.EACCES), domain.TransportSocket)
	tr := Troubleshoot(d)
	if len(tr.PossibleCauses) == 0 || len(tr.SuggestedActions) == 0 {
		t.Fatalf("expected troubleshooting content, got %+v", tr)
	}
	if Resolution(d.Kind) == Resolution(domain.KindUnknown) {
		t.Error("expected a kind-specific resolution")
	}
}
