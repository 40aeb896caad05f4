package gonet

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

var ErrLineBreak = errors.New("gonet: line contains a line break")

// pendingCall is a request waiting for its response line.
type pendingCall struct {
	response string
	err      error

	// Closed once response or err is set.
	completed chan struct{}
}

// Connection is the client side of a request/response exchange. It runs a
// ModeRequest Handler and matches each response line to the oldest
// outstanding Call, which holds because the handler writes one request and
// reads one response per cycle.
type Connection struct {
	handler *Handler

	mu      sync.Mutex
	pending []*pendingCall
	closed  bool
}

func NewConnection(ctx context.Context, server string) (*Connection, error) {
	conn, err := Dial(ctx, server)
	if err != nil {
		return nil, err
	}
	return newConnection(conn)
}

func newConnection(conn net.Conn) (*Connection, error) {
	c := &Connection{}
	h, err := NewHandler(conn, ModeRequest, ProcessorFunc(c.resolve), ShutdownFunc(c.failPending))
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.handler = h
	h.Start(context.Background())
	return c, nil
}

// Call sends data and waits for its response. If ctx ends first the
// request stays queued and its response is discarded when it arrives.
func (c *Connection) Call(ctx context.Context, data string) (string, error) {
	call, err := c.enqueue(data)
	if err != nil {
		return "", err
	}
	return c.wait(ctx, call)
}

func (c *Connection) enqueue(data string) (*pendingCall, error) {
	if strings.ContainsAny(data, "\r\n") {
		return nil, ErrLineBreak
	}

	call := &pendingCall{completed: make(chan struct{})}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrConnClosed
	}
	// Registering and queueing under one lock keeps both in the same order.
	c.pending = append(c.pending, call)
	c.handler.Send(data)
	return call, nil
}

func (c *Connection) wait(ctx context.Context, call *pendingCall) (string, error) {
	select {
	case <-call.completed:
		return call.response, call.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Connection) resolve(data string, _ uint64) string {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		log.WithFields(log.Fields{
			"handler":  c.handler.ID(),
			"response": data,
		}).Warn("Connection received a response without a pending call")
		return ""
	}
	call := c.pending[0]
	c.pending[0] = nil
	c.pending = c.pending[1:]
	c.mu.Unlock()

	call.response = data
	close(call.completed)
	return ""
}

func (c *Connection) failPending(_ *Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for _, call := range c.pending {
		call.err = ErrConnClosed
		close(call.completed)
	}
	c.pending = nil
}

func (c *Connection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Handler exposes the underlying handler, e.g. for its ID.
func (c *Connection) Handler() *Handler {
	return c.handler
}

// Close stops the handler and waits until the connection is released.
// Outstanding calls fail with ErrConnClosed.
func (c *Connection) Close() {
	c.handler.Stop()
	<-c.handler.Done()
}
