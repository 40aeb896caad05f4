//go:build !linux

package gonet

import (
	"context"
	"net"
	"time"
)

// Dial opens a TCP connection with a timeout and keepalive.
func Dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout:   time.Second,
		KeepAlive: 5 * time.Second,
	}
	return dialer.DialContext(ctx, "tcp", address)
}
