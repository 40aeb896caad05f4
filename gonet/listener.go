package gonet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"
)

// HandlerFactory takes over an accepted connection. New may block for the
// lifetime of the connection; the Listener calls it on its own goroutine.
// done is closed when the Listener closes.
type HandlerFactory interface {
	New(c net.Conn, done <-chan struct{})
}

type Listener struct {
	handler HandlerFactory
	addr    string

	listener  net.Listener
	done      chan struct{}
	closeOnce sync.Once
}

func NewListener(port int, handler HandlerFactory) *Listener {
	return NewListenerForAddr(fmt.Sprintf(":%d", port), handler)
}

func NewListenerForAddr(addr string, handler HandlerFactory) *Listener {
	l := &Listener{
		handler: handler,
		addr:    addr,

		done: make(chan struct{}),
	}
	return l
}

func (l *Listener) Start(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		return err
	}

	l.listener = listener
	go l.listen()
	return nil
}

func (l *Listener) listen() {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.WithFields(log.Fields{
					"listener": l.Address().String(),
					"error":    err,
				}).Warn("Listener failed to accept")
			}
			return
		}

		log.WithFields(log.Fields{
			"listener": l.Address().String(),
			"remote":   conn.RemoteAddr().String(),
		}).Debug("Listener accepted connection")

		go l.handler.New(conn, l.done)
	}
}

func (l *Listener) Address() net.Addr {
	return l.listener.Addr()
}

// Close stops accepting and closes done for every running handler. Only
// the first call does anything.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		err = l.listener.Close()
	})
	return err
}
