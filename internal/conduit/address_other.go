//go:build !unix

package conduit

import (
	"fmt"
	"net"
)

// bindListener falls back to a loopback TCP socket on platforms without
// filesystem-domain sockets. The kernel picks a free port, which keeps the
// address collision-resistant without any naming scheme.
func bindListener() (net.Listener, string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", fmt.Errorf("failed to listen on loopback: %w", err)
	}
	return listener, "tcp://" + listener.Addr().String(), nil
}
