package gonet

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// Mode selects what a Handler's run loop does in each cycle.
type Mode int

const (
	// ModeListen reads lines and hands each to the processor.
	ModeListen Mode = iota
	// ModeSendOnly writes queued lines, fire and forget.
	ModeSendOnly
	// ModeServe reads a request line and writes the processor's response.
	ModeServe
	// ModeRequest writes a queued line, then reads one response line and
	// hands it to the processor.
	ModeRequest
)

var modeNames = [...]string{"listen", "send-only", "serve", "request"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

func (m Mode) valid() bool {
	return m >= ModeListen && m <= ModeRequest
}

// drains reports whether the mode ever consumes the send queue.
func (m Mode) drains() bool {
	return m == ModeSendOnly || m == ModeRequest
}

func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

var (
	ErrInterrupted = errors.New("gonet: interrupted")
	ErrConnClosed  = errors.New("gonet: connection closed")
	ErrInvalidMode = errors.New("gonet: invalid mode")
	ErrPanic       = errors.New("gonet: processor panicked")
)

var lastHandlerID atomic.Uint64

// Handler owns one connection and drives it in a fixed Mode.
//
// Before the handler runs, ReadLine and WriteLine may be used directly, e.g.
// for a handshake. Once Run has been called the connection belongs to the
// run loop; other goroutines only use Send and Stop.
type Handler struct {
	id        uint64
	conn      net.Conn
	mode      Mode
	processor Processor
	shutdown  ShutdownListener

	reader    *bufio.Reader
	skipLF    bool
	writer    *bufio.Writer
	writeLock sync.Mutex

	queue *outbox

	started       atomic.Bool
	stopped       atomic.Bool
	interrupt     chan struct{}
	interruptOnce sync.Once
	releaseOnce   sync.Once
	done          chan struct{}

	log *log.Entry
}

// NewHandler wraps conn. processor and shutdown may be nil.
func NewHandler(conn net.Conn, mode Mode, processor Processor, shutdown ShutdownListener) (*Handler, error) {
	if !mode.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
	}

	h := &Handler{
		id:        lastHandlerID.Add(1),
		conn:      conn,
		mode:      mode,
		processor: processor,
		shutdown:  shutdown,

		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),

		queue:     newOutbox(),
		interrupt: make(chan struct{}),
		done:      make(chan struct{}),
	}
	h.log = log.WithFields(log.Fields{
		"handler": h.id,
		"mode":    mode.String(),
		"remote":  remoteAddr(conn),
	})
	return h, nil
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// ID is unique per handler within the process and is passed to the
// processor with every line.
func (h *Handler) ID() uint64 {
	return h.id
}

func (h *Handler) Mode() Mode {
	return h.mode
}

func (h *Handler) RemoteAddr() string {
	return remoteAddr(h.conn)
}

// Done is closed after the handler released its connection.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Start runs the handler on a new goroutine.
func (h *Handler) Start(ctx context.Context) {
	go h.Run(ctx)
}

// Run drives the connection until end of stream, an I/O error, Stop, or
// cancellation of ctx. It then notifies the shutdown listener and releases
// the connection. Run returns immediately if the handler already ran or
// was closed.
func (h *Handler) Run(ctx context.Context) {
	if !h.started.CompareAndSwap(false, true) {
		h.log.Debug("Handler already started or closed")
		return
	}
	defer close(h.done)
	defer h.closing()

	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			h.cancel()
		case <-watchDone:
		}
	}()

	h.log.Debug("Handler started")

	err := h.safeLoop()
	switch {
	case errors.Is(err, ErrPanic):
		h.log.WithField("error", err).Warn("Handler processor panicked")
	case err == nil:
		h.log.Debug("Handler reached end of stream")
	case h.stopped.Load():
		h.log.Debug("Handler stopped")
	case errors.Is(err, ErrInterrupted) || h.interrupted():
		h.log.WithField("error", err).Info("Handler interrupted without stop request")
	default:
		h.log.WithField("error", err).Warn("Handler failed")
	}
}

// safeLoop turns a processor panic into ErrPanic so that only this
// connection ends.
func (h *Handler) safeLoop() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return h.loop()
}

// loop returns nil on end of stream or after Stop.
func (h *Handler) loop() error {
	for !h.stopped.Load() {
		var err error
		switch h.mode {
		case ModeListen:
			err = h.listenOnce()
		case ModeSendOnly:
			err = h.sendOnce()
		case ModeServe:
			err = h.serveOnce()
		case ModeRequest:
			err = h.requestOnce()
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) listenOnce() error {
	line, err := h.ReadLine()
	if err != nil {
		return err
	}
	h.process(line)
	return nil
}

func (h *Handler) sendOnce() error {
	line, err := h.queue.pop(h.interrupt)
	if err != nil {
		return err
	}
	return h.WriteLine(line)
}

func (h *Handler) serveOnce() error {
	query, err := h.ReadLine()
	if err != nil {
		return err
	}
	return h.WriteLine(h.process(query))
}

func (h *Handler) requestOnce() error {
	query, err := h.queue.pop(h.interrupt)
	if err != nil {
		return err
	}
	if err := h.WriteLine(query); err != nil {
		return err
	}
	response, err := h.ReadLine()
	if err != nil {
		return err
	}
	h.process(response)
	return nil
}

// process returns "" when no processor is set.
func (h *Handler) process(data string) string {
	if h.processor == nil {
		return ""
	}
	return h.processor.Process(data, h.id)
}

// Send queues data for the run loop and returns immediately. Lines are
// written in the order they were queued. Only ModeSendOnly and ModeRequest
// drain the queue; in the other modes queued lines are never written and
// the queue keeps growing.
func (h *Handler) Send(data string) {
	if !h.mode.drains() {
		h.log.Debug("Send on a handler whose mode never drains the queue")
	}
	h.queue.push(data)
}

// Pending returns the number of queued lines not yet written.
func (h *Handler) Pending() int {
	return h.queue.len()
}

// WriteLine writes data and a newline and flushes.
func (h *Handler) WriteLine(data string) error {
	h.writeLock.Lock()
	defer h.writeLock.Unlock()

	if _, err := h.writer.WriteString(data); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	if err := h.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	if err := h.writer.Flush(); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

// ReadLine blocks for the next line, without its line terminator. A line
// ends with "\n", "\r" or "\r\n". It returns io.EOF at end of stream, and
// also when the read fails after Stop.
func (h *Handler) ReadLine() (string, error) {
	line, err := h.readRaw()
	if err != nil {
		if h.stopped.Load() {
			return "", io.EOF
		}
		if errors.Is(err, io.EOF) {
			if line != "" {
				// Unterminated last line; the next call reports io.EOF.
				return line, nil
			}
			return "", io.EOF
		}
		return "", fmt.Errorf("read line: %w", err)
	}
	return line, nil
}

// readRaw reads up to the next terminator. The "\n" of a "\r\n" pair is
// skipped on the following call so a lone "\r" never waits for more input.
func (h *Handler) readRaw() (string, error) {
	var buf []byte
	for {
		b, err := h.reader.ReadByte()
		if err != nil {
			return string(buf), err
		}
		if h.skipLF {
			h.skipLF = false
			if b == '\n' {
				continue
			}
		}
		switch b {
		case '\n':
			return string(buf), nil
		case '\r':
			h.skipLF = true
			return string(buf), nil
		}
		buf = append(buf, b)
	}
}

// Stop asks the run loop to finish and interrupts a pending queue wait or
// read. A write in progress is not aborted. Stop is idempotent.
func (h *Handler) Stop() {
	h.stopped.Store(true)
	h.cancel()
}

// Stopped reports whether Stop was called.
func (h *Handler) Stopped() bool {
	return h.stopped.Load()
}

func (h *Handler) cancel() {
	h.interruptOnce.Do(func() {
		close(h.interrupt)
		// Unblocks a read in progress; writes are left alone.
		_ = h.conn.SetReadDeadline(time.Now())
	})
}

func (h *Handler) interrupted() bool {
	select {
	case <-h.interrupt:
		return true
	default:
		return false
	}
}

// Close stops the handler. A handler that never ran releases its
// connection right away; a running one releases it when its loop exits.
func (h *Handler) Close() {
	h.Stop()
	if h.started.CompareAndSwap(false, true) {
		h.release()
		close(h.done)
	}
}

func (h *Handler) closing() {
	if h.shutdown != nil {
		h.notifyShutdown()
	}
	h.release()
	h.log.Debug("Handler closed")
}

func (h *Handler) notifyShutdown() {
	defer func() {
		if r := recover(); r != nil {
			h.log.WithField("error", r).Warn("Shutdown listener panicked")
		}
	}()
	h.shutdown.HandlerClosing(h)
}

// release closes the read side, the write side and the connection. Every
// step runs even if an earlier one failed; errors are only logged.
func (h *Handler) release() {
	h.releaseOnce.Do(func() {
		var errs error

		if cr, ok := h.conn.(interface{ CloseRead() error }); ok {
			if err := cr.CloseRead(); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("close read: %w", err))
			}
		}

		h.writeLock.Lock()
		if err := h.writer.Flush(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("flush: %w", err))
		}
		h.writeLock.Unlock()
		if cw, ok := h.conn.(interface{ CloseWrite() error }); ok {
			if err := cw.CloseWrite(); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("close write: %w", err))
			}
		}

		if err := h.conn.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("close: %w", err))
		}

		if errs != nil {
			h.log.WithField("error", errs).Debug("Errors while releasing connection")
		}
	})
}
