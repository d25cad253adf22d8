//go:build !windows

package docker

import (
	"context"
	"net"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
)

func dialEndpoint(ctx context.Context, ep Endpoint) (net.Conn, error) {
	if ep.Transport == domain.TransportPipe {
		return nil, ErrPipeUnsupported
	}
	var d net.Dialer
	return d.DialContext(ctx, "unix", ep.Address)
}
