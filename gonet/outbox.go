package gonet

import "sync"

// outbox is an unbounded FIFO of lines waiting to be written. Any number of
// goroutines may push; a single consumer pops.
type outbox struct {
	mu    sync.Mutex
	lines []string

	// ready holds at most one wake-up token for the consumer.
	ready chan struct{}
}

func newOutbox() *outbox {
	return &outbox{ready: make(chan struct{}, 1)}
}

// push never blocks.
func (o *outbox) push(line string) {
	o.mu.Lock()
	o.lines = append(o.lines, line)
	o.mu.Unlock()

	select {
	case o.ready <- struct{}{}:
	default:
	}
}

// pop returns the oldest line, waiting while the outbox is empty. It
// returns ErrInterrupted once cancel is closed.
func (o *outbox) pop(cancel <-chan struct{}) (string, error) {
	for {
		o.mu.Lock()
		if len(o.lines) > 0 {
			line := o.lines[0]
			o.lines[0] = ""
			o.lines = o.lines[1:]
			o.mu.Unlock()
			return line, nil
		}
		o.mu.Unlock()

		select {
		case <-o.ready:
		case <-cancel:
			return "", ErrInterrupted
		}
	}
}

func (o *outbox) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.lines)
}
