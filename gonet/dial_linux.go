//go:build linux

package gonet

import (
	"context"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Socket options from tcp(7), so a vanished peer is noticed within a few
// seconds instead of the system default of hours.
func dialControl(_, _ string, rawConn syscall.RawConn) (err error) {
	const (
		// TCP_KEEPCNT: probes sent before dropping the connection.
		keepCnt int = 3
		// TCP_KEEPIDLE: idle seconds before the first probe.
		keepIdle int = 5
		// TCP_KEEPINTVL: seconds between probes.
		keepIntvl int = 3
		// TCP_USER_TIMEOUT: milliseconds written data may stay unacknowledged.
		userTimeout int = 10000
	)

	opts := map[int]int{
		unix.TCP_KEEPCNT:      keepCnt,
		unix.TCP_KEEPIDLE:     keepIdle,
		unix.TCP_KEEPINTVL:    keepIntvl,
		unix.TCP_USER_TIMEOUT: userTimeout,
	}

	ctrlErr := rawConn.Control(func(fd uintptr) {
		if err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
			return
		}
		for opt, value := range opts {
			if err = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, opt, value); err != nil {
				return
			}
		}
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return err
}

// Dial opens a TCP connection with keepalive socket options set.
func Dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout: time.Second,
		Control: dialControl,
	}
	return dialer.DialContext(ctx, "tcp", address)
}
