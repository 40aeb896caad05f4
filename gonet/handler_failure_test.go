package gonet

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// faultyConn injects errors into the wrapped connection.
type faultyConn struct {
	net.Conn

	readErr       error
	writeErr      error
	closeReadErr  error
	closeWriteErr error

	closed atomic.Bool
}

func (c *faultyConn) Read(b []byte) (int, error) {
	if c.readErr != nil {
		return 0, c.readErr
	}
	return c.Conn.Read(b)
}

func (c *faultyConn) Write(b []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	return c.Conn.Write(b)
}

func (c *faultyConn) CloseRead() error {
	return c.closeReadErr
}

func (c *faultyConn) CloseWrite() error {
	return c.closeWriteErr
}

func (c *faultyConn) Close() error {
	c.closed.Store(true)
	return c.Conn.Close()
}

func (s *HandlerSuite) assertFailed(h *Handler, conn *faultyConn, closer *closeCounter, message string) {
	s.waitDone(h.Done())
	s.Equal(int32(1), closer.calls.Load())
	s.True(conn.closed.Load())

	warnings := s.warnings()
	s.Require().Len(warnings, 1)
	s.Equal(message, warnings[0].Message)
	s.Equal(h.ID(), warnings[0].Data["handler"])
}

func (s *HandlerSuite) TestReadFailure() {
	local, remote := s.ConnPair()
	defer func() { _ = remote.Close() }()
	conn := &faultyConn{Conn: local, readErr: errors.New("connection reset")}
	closer := newCloseCounter()

	h, err := NewHandler(conn, ModeListen, newCollector(), closer)
	s.Require().NoError(err)
	h.Start(context.Background())

	s.assertFailed(h, conn, closer, "Handler failed")
	s.ErrorContains(s.warnings()[0].Data["error"].(error), "connection reset")
}

func (s *HandlerSuite) TestWriteFailure() {
	local, remote := s.ConnPair()
	defer func() { _ = remote.Close() }()
	conn := &faultyConn{Conn: local, writeErr: errors.New("broken pipe")}
	closer := newCloseCounter()

	h, err := NewHandler(conn, ModeSendOnly, nil, closer)
	s.Require().NoError(err)
	h.Send("a")
	h.Start(context.Background())

	s.assertFailed(h, conn, closer, "Handler failed")
}

func (s *HandlerSuite) TestReleaseContinuesAfterErrors() {
	prev := logrus.GetLevel()
	logrus.SetLevel(logrus.DebugLevel)
	defer logrus.SetLevel(prev)

	local, remote := s.ConnPair()
	conn := &faultyConn{
		Conn:          local,
		closeReadErr:  errors.New("close read failed"),
		closeWriteErr: errors.New("close write failed"),
	}
	closer := newCloseCounter()

	h, err := NewHandler(conn, ModeListen, nil, closer)
	s.Require().NoError(err)
	h.Start(context.Background())

	s.Require().NoError(remote.Close())
	s.waitDone(h.Done())
	s.Equal(int32(1), closer.calls.Load())
	s.True(conn.closed.Load())
	s.Empty(s.warnings())

	var released *logrus.Entry
	for _, e := range s.logs.AllEntries() {
		if e.Message == "Errors while releasing connection" {
			released = e
		}
	}
	s.Require().NotNil(released)
	s.Equal(logrus.DebugLevel, released.Level)
	merr, ok := released.Data["error"].(*multierror.Error)
	s.Require().True(ok)
	s.Len(merr.Errors, 2)
}

func (s *HandlerSuite) TestProcessorPanicEndsOnlyItsHandler() {
	failing, failingRemote := s.ConnPair()
	defer func() { _ = failingRemote.Close() }()
	healthy, healthyRemote := s.ConnPair()
	defer func() { _ = healthyRemote.Close() }()

	closer := newCloseCounter()
	bad, err := NewHandler(failing, ModeServe, ProcessorFunc(func(string, uint64) string {
		panic("boom")
	}), closer)
	s.Require().NoError(err)
	good, err := NewHandler(healthy, ModeServe, ProcessorFunc(echo), nil)
	s.Require().NoError(err)
	bad.Start(context.Background())
	good.Start(context.Background())

	_, err = failingRemote.Write([]byte("PING\n"))
	s.Require().NoError(err)

	s.waitDone(bad.Done())
	s.Equal(bad, <-closer.notified)
	warnings := s.warnings()
	s.Require().Len(warnings, 1)
	s.Equal("Handler processor panicked", warnings[0].Message)
	s.ErrorIs(warnings[0].Data["error"].(error), ErrPanic)

	s.readWithTimeout(failingRemote)
	_, err = bufio.NewReader(failingRemote).ReadString('\n')
	s.ErrorIs(err, io.EOF)

	_, err = healthyRemote.Write([]byte("still here\n"))
	s.Require().NoError(err)
	s.readWithTimeout(healthyRemote)
	resp, err := bufio.NewReader(healthyRemote).ReadString('\n')
	s.Require().NoError(err)
	s.Equal("still here\n", resp)

	good.Stop()
	s.waitDone(good.Done())
}

func (s *HandlerSuite) TestReadLineTerminators() {
	local, remote := s.ConnPair()
	h, err := NewHandler(local, ModeListen, nil, nil)
	s.Require().NoError(err)
	defer h.Close()

	_, err = remote.Write([]byte("a\rb\nc\r"))
	s.Require().NoError(err)
	for _, want := range []string{"a", "b", "c"} {
		line, err := h.ReadLine()
		s.Require().NoError(err)
		s.Equal(want, line)
	}

	// The "\n" completing "c\r\n" arrives later and is not an empty line.
	_, err = remote.Write([]byte("\nd\r\n\n"))
	s.Require().NoError(err)
	for _, want := range []string{"d", ""} {
		line, err := h.ReadLine()
		s.Require().NoError(err)
		s.Equal(want, line)
	}

	s.Require().NoError(remote.Close())
	_, err = h.ReadLine()
	s.ErrorIs(err, io.EOF)
}
