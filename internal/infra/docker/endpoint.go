package docker

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
)

const (
	DefaultSocketPath = "/var/run/docker.sock"
	DefaultPipePath   = `\\.\pipe\docker_engine`
)

// ErrPipeUnsupported is returned when dialing a named pipe outside Windows.
var ErrPipeUnsupported = errors.New("named pipe transport is only available on windows")

// Endpoint is the local address of the daemon.
type Endpoint struct {
	Transport domain.Transport `json:"transport"`
	Address   string           `json:"address"`
}

func (e Endpoint) String() string {
	if e.Transport == domain.TransportPipe {
		return "npipe://" + strings.ReplaceAll(e.Address, `\`, "/")
	}
	return "unix://" + e.Address
}

// CheckPlatform reports an endpoint whose transport this platform cannot dial.
func (e Endpoint) CheckPlatform() error {
	if e.Transport == domain.TransportPipe && runtime.GOOS != "windows" {
		return fmt.Errorf("%w: %s", ErrPipeUnsupported, e)
	}
	return nil
}

// DefaultEndpoint returns the platform default daemon endpoint.
func DefaultEndpoint() Endpoint {
	if runtime.GOOS == "windows" {
		return Endpoint{Transport: domain.TransportPipe, Address: DefaultPipePath}
	}
	return Endpoint{Transport: domain.TransportSocket, Address: DefaultSocketPath}
}

// ParseEndpoint accepts unix:// and npipe:// URLs as well as bare socket
// paths and \\.\pipe\ names. An empty string yields the platform default.
func ParseEndpoint(raw string) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return DefaultEndpoint(), nil
	case strings.HasPrefix(raw, "unix://"):
		path := strings.TrimPrefix(raw, "unix://")
		if path == "" {
			return Endpoint{}, fmt.Errorf("empty socket path in %q", raw)
		}
		return Endpoint{Transport: domain.TransportSocket, Address: path}, nil
	case strings.HasPrefix(raw, "npipe://"):
		name := strings.TrimPrefix(raw, "npipe://")
		name = strings.ReplaceAll(name, "/", `\`)
		if !strings.HasPrefix(name, `\\.\pipe\`) {
			return Endpoint{}, fmt.Errorf("invalid named pipe %q", raw)
		}
		return Endpoint{Transport: domain.TransportPipe, Address: name}, nil
	case strings.HasPrefix(raw, `\\.\pipe\`), strings.HasPrefix(raw, "//./pipe/"):
		return Endpoint{Transport: domain.TransportPipe, Address: strings.ReplaceAll(raw, "/", `\`)}, nil
	case strings.Contains(raw, "://"):
		return Endpoint{}, fmt.Errorf("unsupported daemon scheme in %q", raw)
	default:
		return Endpoint{Transport: domain.TransportSocket, Address: raw}, nil
	}
}
