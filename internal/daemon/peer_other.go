//go:build !linux

package daemon

import "net"

// authorizePeer relies on the socket's 0600 mode where peer credentials are
// not available.
func authorizePeer(net.Conn, []int) error { return nil }
