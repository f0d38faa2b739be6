//go:build !windows

package player

import (
	"context"
	"net"
)

// DialSocket connects to the player's unix control socket.
func DialSocket(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", address)
}
