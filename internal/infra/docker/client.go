// Package docker binds the Docker Engine SDK to a local transport (Unix
// socket or named pipe) and maps its errors onto the types the resilience
// layer classifies.
package docker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
)

// API is the daemon surface used by the dashboard.
type API interface {
	// Probe is the minimal round-trip used for connection checks.
	Probe(ctx context.Context) error
	Version(ctx context.Context) (*VersionInfo, error)
	Info(ctx context.Context) (*SystemInfo, error)
	ListContainers(ctx context.Context, opts ListOptions) ([]Container, error)
}

// ErrDaemonUnreachable marks a request that never reached the daemon.
var ErrDaemonUnreachable = errors.New("docker daemon unreachable")

// StatusError is a non-2xx response from the daemon.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("docker %s: http %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Err }

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// VersionInfo is the subset of GET /version reported by /health.
type VersionInfo struct {
	Version       string `json:"version"`
	APIVersion    string `json:"api_version"`
	MinAPIVersion string `json:"min_api_version,omitempty"`
	Os            string `json:"os"`
	Arch          string `json:"arch"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
}

// SystemInfo is the subset of GET /info reported by /health/detailed.
type SystemInfo struct {
	ID                string `json:"id"`
	Containers        int    `json:"containers"`
	ContainersRunning int    `json:"containers_running"`
	Images            int    `json:"images"`
	ServerVersion     string `json:"server_version"`
	OperatingSystem   string `json:"operating_system"`
}

// Container is a row of GET /containers/json.
type Container struct {
	ID     string            `json:"id"`
	Names  []string          `json:"names"`
	Image  string            `json:"image"`
	State  string            `json:"state"`
	Status string            `json:"status"`
	Labels map[string]string `json:"labels,omitempty"`
	Ports  []Port            `json:"ports,omitempty"`
}

// Port is a published container port.
type Port struct {
	IP          string `json:"ip,omitempty"`
	PrivatePort int    `json:"private_port"`
	PublicPort  int    `json:"public_port,omitempty"`
	Type        string `json:"type"`
}

// ListOptions filters ListContainers.
type ListOptions struct {
	All   bool
	Limit int
}

// Client implements API with the Docker Engine SDK.
type Client struct {
	endpoint   Endpoint
	timeout    time.Duration
	apiVersion string
	dial       func(ctx context.Context) (net.Conn, error)
	transport  *http.Transport
	api        *client.Client
}

// Option customises a Client.
type Option func(*Client)

// WithAPIVersion pins requests to /v<version>/... instead of negotiating.
func WithAPIVersion(v string) Option {
	return func(c *Client) { c.apiVersion = strings.TrimPrefix(v, "v") }
}

// WithDialer replaces the transport dialer. Used by tests.
func WithDialer(dial func(ctx context.Context) (net.Conn, error)) Option {
	return func(c *Client) { c.dial = dial }
}

// NewClient creates a client for ep. timeout bounds each request.
func NewClient(ep Endpoint, timeout time.Duration, opts ...Option) (*Client, error) {
	c := &Client{
		endpoint: ep,
		timeout:  timeout,
		dial: func(ctx context.Context) (net.Conn, error) {
			return dialEndpoint(ctx, ep)
		},
		transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	sdkOpts := []client.Opt{
		client.WithHTTPClient(&http.Client{Transport: c.transport}),
		client.WithHost(ep.String()),
		client.WithDialContext(func(ctx context.Context, _, _ string) (net.Conn, error) {
			return c.dial(ctx)
		}),
	}
	if c.apiVersion != "" {
		sdkOpts = append(sdkOpts, client.WithVersion(c.apiVersion))
	} else {
		sdkOpts = append(sdkOpts, client.WithAPIVersionNegotiation())
	}

	api, err := client.NewClientWithOpts(sdkOpts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client for %s: %w", ep, err)
	}
	c.api = api
	return c, nil
}

// Endpoint returns the daemon endpoint.
func (c *Client) Endpoint() Endpoint { return c.endpoint }

// CloseIdleConnections drops pooled connections so the next call redials.
func (c *Client) CloseIdleConnections() {
	c.transport.CloseIdleConnections()
}

// Close releases the SDK client.
func (c *Client) Close() error {
	return c.api.Close()
}

// Probe lists at most one container.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.ListContainers(ctx, ListOptions{Limit: 1})
	return err
}

// Version calls GET /version.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	v, err := c.api.ServerVersion(ctx)
	if err != nil {
		return nil, c.wrap(ctx, "version", err)
	}
	return &VersionInfo{
		Version:       v.Version,
		APIVersion:    v.APIVersion,
		MinAPIVersion: v.MinAPIVersion,
		Os:            v.Os,
		Arch:          v.Arch,
		GitCommit:     v.GitCommit,
		BuildTime:     v.BuildTime,
	}, nil
}

// Info calls GET /info.
func (c *Client) Info(ctx context.Context) (*SystemInfo, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	info, err := c.api.Info(ctx)
	if err != nil {
		return nil, c.wrap(ctx, "info", err)
	}
	return &SystemInfo{
		ID:                info.ID,
		Containers:        info.Containers,
		ContainersRunning: info.ContainersRunning,
		Images:            info.Images,
		ServerVersion:     info.ServerVersion,
		OperatingSystem:   info.OperatingSystem,
	}, nil
}

// ListContainers calls GET /containers/json.
func (c *Client) ListContainers(ctx context.Context, opts ListOptions) ([]Container, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	list, err := c.api.ContainerList(ctx, container.ListOptions{All: opts.All, Limit: opts.Limit})
	if err != nil {
		return nil, c.wrap(ctx, "containers/json", err)
	}

	out := make([]Container, 0, len(list))
	for _, s := range list {
		ct := Container{
			ID:     s.ID,
			Names:  s.Names,
			Image:  s.Image,
			State:  string(s.State),
			Status: s.Status,
			Labels: s.Labels,
		}
		for _, p := range s.Ports {
			ct.Ports = append(ct.Ports, Port{
				IP:          p.IP,
				PrivatePort: int(p.PrivatePort),
				PublicPort:  int(p.PublicPort),
				Type:        p.Type,
			})
		}
		out = append(out, ct)
	}
	return out, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// wrap maps SDK errors to StatusError or, for requests that never reached
// the daemon, to an error carrying the dial failure. The SDK reports socket
// dial failures without the underlying errno, so the endpoint is dialed once
// more to recover it.
func (c *Client) wrap(ctx context.Context, op string, err error) error {
	if code := statusCode(err); code != 0 {
		return &StatusError{Op: op, StatusCode: code, Message: errorMessage(err), Err: err}
	}
	if !client.IsErrConnectionFailed(err) {
		return fmt.Errorf("docker %s: %w", op, err)
	}

	conn, dialErr := c.dial(ctx)
	if dialErr != nil {
		return fmt.Errorf("docker %s: %w: %w", op, ErrDaemonUnreachable, dialErr)
	}
	_ = conn.Close()
	return fmt.Errorf("docker %s: %w: %w", op, ErrDaemonUnreachable, err)
}

// statusCode recovers the HTTP status from the SDK's typed errors.
func statusCode(err error) int {
	switch {
	case errdefs.IsInvalidParameter(err):
		return http.StatusBadRequest
	case errdefs.IsUnauthorized(err):
		return http.StatusUnauthorized
	case errdefs.IsForbidden(err):
		return http.StatusForbidden
	case errdefs.IsNotFound(err):
		return http.StatusNotFound
	case errdefs.IsConflict(err):
		return http.StatusConflict
	case errdefs.IsNotImplemented(err):
		return http.StatusNotImplemented
	case errdefs.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case errdefs.IsSystem(err):
		return http.StatusInternalServerError
	}
	return 0
}

func errorMessage(err error) string {
	return strings.TrimPrefix(err.Error(), "Error response from daemon: ")
}
