package gonet

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Client is a pool of request/response connections to one server. It
// dials minCons connections up front and grows up to maxCons on demand.
type Client struct {
	addr    string
	minCons int
	maxCons int

	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once

	slots chan *Connection

	conns    []*Connection
	connLock sync.Mutex
}

func NewClient(ctx context.Context, addr string, minCons, maxCons int) (*Client, error) {
	if maxCons < 1 {
		maxCons = 1
	}
	if minCons > maxCons {
		minCons = maxCons
	}

	c := &Client{
		addr:    addr,
		minCons: minCons,
		maxCons: maxCons,

		done:  make(chan struct{}),
		slots: make(chan *Connection, maxCons),
		conns: make([]*Connection, 0, maxCons),
	}
	err := c.connect(ctx, minCons)
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) connect(ctx context.Context, n int) error {
	c.connLock.Lock()
	defer c.connLock.Unlock()

	for i := 0; i < n; i++ {
		conn, err := NewConnection(ctx, c.addr)
		if err != nil {
			return err
		}
		c.conns = append(c.conns, conn)
		c.slots <- conn
	}
	return nil
}

// Call sends data on a pooled connection and waits for the response.
func (c *Client) Call(ctx context.Context, data string) (string, error) {
	for {
		if c.closed.Load() {
			return "", ErrConnClosed
		}

		if len(c.slots) == 0 {
			go c.maybeGrow()
		}

		select {
		case conn := <-c.slots:
			if !conn.IsOpen() {
				// Dropped from the slots; maybeGrow prunes it from conns.
				continue
			}

			call, err := conn.enqueue(data)
			if errors.Is(err, ErrConnClosed) {
				continue
			}

			// Request queued or rejected, returning the connection to the pool
			c.putBack(conn)

			if err != nil {
				return "", err
			}
			return conn.wait(ctx, call)

		case <-c.done:
			return "", ErrConnClosed

		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// putBack returns conn to the slots unless it died meanwhile. It never
// blocks: when maybeGrow already refilled the slots, conn stays out.
func (c *Client) putBack(conn *Connection) {
	if !conn.IsOpen() {
		return
	}
	select {
	case c.slots <- conn:
	default:
	}
}

func (c *Client) maybeGrow() {
	if c.closed.Load() {
		return
	}

	if !c.connLock.TryLock() {
		// Already being handled
		return
	}
	defer c.connLock.Unlock()

	if c.closed.Load() {
		return
	}

	// Remove all dead connections first
	c.conns = slices.DeleteFunc(c.conns, func(conn *Connection) bool { return !conn.IsOpen() })

	if len(c.conns) < c.maxCons {
		conn, err := NewConnection(context.Background(), c.addr)
		if err != nil {
			// No retry here; the next Call that finds the pool empty tries again.
			log.WithFields(log.Fields{
				"address": c.addr,
				"error":   err,
			}).Warn("Client failed to open a connection")
			return
		}
		select {
		case c.slots <- conn:
			c.conns = append(c.conns, conn)
		default:
			// Slots still hold dead connections; callers will drain them.
			conn.Close()
		}
	}
}

// Close closes every connection. Calls after Close fail with ErrConnClosed.
func (c *Client) Close() {
	c.closed.Store(true)
	c.closeOnce.Do(func() { close(c.done) })

	c.connLock.Lock()
	defer c.connLock.Unlock()

	for _, conn := range c.conns {
		conn.Close()
	}
	c.conns = nil
}
