//go:build linux

package daemon

import (
	"errors"
	"fmt"
	"net"
	"slices"

	"golang.org/x/sys/unix"
)

// authorizePeer accepts connections whose peer uid is in allowed.
func authorizePeer(conn net.Conn, allowed []int) error {
	uid, err := peerUID(conn)
	if err != nil {
		return err
	}
	if !slices.Contains(allowed, uid) {
		return fmt.Errorf("peer uid %d not permitted", uid)
	}
	return nil
}

func peerUID(conn net.Conn) (int, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return -1, errors.New("peer credentials require a unix connection")
	}
	raw, err := unixConn.SyscallConn()
	if err != nil {
		return -1, fmt.Errorf("peer credentials: %w", err)
	}
	var cred *unix.Ucred
	var credErr error
	if err := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return -1, fmt.Errorf("peer credentials: %w", err)
	}
	if credErr != nil {
		return -1, fmt.Errorf("peer credentials: %w", credErr)
	}
	return int(cred.Uid), nil
}
