package gonet

import (
	"context"
	"net"

	log "github.com/sirupsen/logrus"
)

// ModeFactory runs one Handler in a fixed mode for every accepted
// connection. It implements HandlerFactory.
type ModeFactory struct {
	mode      Mode
	processor Processor
	shutdown  ShutdownListener
	accepted  func(h *Handler)
}

func NewModeFactory(mode Mode, processor Processor, shutdown ShutdownListener) *ModeFactory {
	return &ModeFactory{
		mode:      mode,
		processor: processor,
		shutdown:  shutdown,
	}
}

// NewServerFactory answers every request line with the processor's
// response.
func NewServerFactory(processor Processor) *ModeFactory {
	return NewModeFactory(ModeServe, processor, nil)
}

// OnAccept registers fn to be called with each new handler before it runs,
// e.g. to keep it for Send.
func (f *ModeFactory) OnAccept(fn func(h *Handler)) *ModeFactory {
	f.accepted = fn
	return f
}

func (f *ModeFactory) New(conn net.Conn, done <-chan struct{}) {
	h, err := NewHandler(conn, f.mode, f.processor, f.shutdown)
	if err != nil {
		log.WithFields(log.Fields{
			"remote": remoteAddr(conn),
			"error":  err,
		}).Warn("Failed to create handler")
		_ = conn.Close()
		return
	}

	if f.accepted != nil {
		f.accepted(h)
	}

	go func() {
		select {
		case <-done:
			h.Stop()
		case <-h.Done():
		}
	}()

	// No goroutine, per HandlerFactory.New contract
	h.Run(context.Background())
}
