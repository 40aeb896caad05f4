package gonet

import (
	"net"
	"sync"
)

// TrackingFactory counts the connections its inner factory is serving.
type TrackingFactory struct {
	inner HandlerFactory

	mu      sync.Mutex
	active  int
	waiters []chan struct{}
}

func WithTracking(inner HandlerFactory) *TrackingFactory {
	return &TrackingFactory{inner: inner}
}

func (t *TrackingFactory) New(c net.Conn, done <-chan struct{}) {
	t.mu.Lock()
	t.active++
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.active--
		if t.active == 0 {
			for _, w := range t.waiters {
				close(w)
			}
			t.waiters = nil
		}
	}()

	t.inner.New(c, done)
}

// Active returns the number of connections being served.
func (t *TrackingFactory) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Done returns a channel closed once no connection is being served.
func (t *TrackingFactory) Done() <-chan struct{} {
	ch := make(chan struct{})

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == 0 {
		close(ch)
	} else {
		t.waiters = append(t.waiters, ch)
	}
	return ch
}
