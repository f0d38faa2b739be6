//go:build windows

package player

import (
	"context"
	"net"

	"github.com/Microsoft/go-winio"
)

// DialSocket connects to the player's named-pipe control channel.
func DialSocket(ctx context.Context, address string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, address)
}
