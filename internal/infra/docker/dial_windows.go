//go:build windows

package docker

import (
	"context"
	"net"

	"github.com/Microsoft/go-winio"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
)

func dialEndpoint(ctx context.Context, ep Endpoint) (net.Conn, error) {
	if ep.Transport == domain.TransportSocket {
		var d net.Dialer
		return d.DialContext(ctx, "unix", ep.Address)
	}
	return winio.DialPipeContext(ctx, ep.Address)
}
