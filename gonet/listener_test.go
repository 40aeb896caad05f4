package gonet

import (
	"bufio"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

// TestHandlerFactory greets every connection by hand, bypassing Handler.
type TestHandlerFactory struct {
	mu            sync.Mutex
	text          string
	readErr       error
	writeErr      error
	isDoneReading sync.WaitGroup
	isDoneWriting sync.WaitGroup
}

func NewTestHandlerFactory(expectedClients int) *TestHandlerFactory {
	hf := &TestHandlerFactory{}
	hf.isDoneReading.Add(expectedClients)
	hf.isDoneWriting.Add(expectedClients)
	return hf
}

func (hf *TestHandlerFactory) New(c net.Conn, done <-chan struct{}) {
	reader := bufio.NewReader(c)
	writer := bufio.NewWriter(c)
	text, readErr := reader.ReadString('\n')
	hf.mu.Lock()
	hf.text, hf.readErr = text, readErr
	hf.mu.Unlock()
	hf.isDoneReading.Done()

	_, writeErr := writer.WriteString("world\n")
	if writeErr == nil {
		writeErr = writer.Flush()
	}
	hf.mu.Lock()
	hf.writeErr = writeErr
	hf.mu.Unlock()
	hf.isDoneWriting.Done()

	<-done
	_ = c.Close()
}

type ListenerSuite struct {
	BaseSuite
}

func TestListenerSuite(t *testing.T) {
	suite.Run(t, new(ListenerSuite))
}

func (s *ListenerSuite) TestConnectionOpenAndClose() {
	hf := NewTestHandlerFactory(1)
	thf := WithTracking(hf)
	l := s.setupListener(thf)

	conn, err := net.Dial("tcp", l.Address().String())
	s.Require().NoError(err)

	_, err = conn.Write([]byte("hello\n"))
	s.Require().NoError(err)

	hf.isDoneReading.Wait()
	s.Assert().NoError(hf.readErr)
	s.Assert().Equal("hello\n", hf.text)
	s.Equal(1, thf.Active())

	hf.isDoneWriting.Wait()
	reader := bufio.NewReader(conn)
	resText, err := reader.ReadString('\n')
	s.Require().NoError(err)
	s.Assert().Equal("world\n", resText)
	s.Assert().NoError(hf.writeErr)

	s.Require().NoError(conn.Close())
	s.Require().NoError(l.Close())

	s.waitDone(thf.Done())
	s.Equal(0, thf.Active())
}

func (s *ListenerSuite) TestAcceptDoesNotBlockOnHandlers() {
	const clients = 5
	hf := NewTestHandlerFactory(clients)
	thf := WithTracking(hf)
	l := s.setupListener(thf)

	// Every handler blocks until the listener closes, so all of them must
	// be served concurrently for the greetings to arrive.
	conns := make([]net.Conn, 0, clients)
	for i := 0; i < clients; i++ {
		conn, err := net.Dial("tcp", l.Address().String())
		s.Require().NoError(err)
		_, err = conn.Write([]byte("hello\n"))
		s.Require().NoError(err)
		conns = append(conns, conn)
	}
	hf.isDoneWriting.Wait()
	s.Equal(clients, thf.Active())

	for _, conn := range conns {
		s.readWithTimeout(conn)
		res, err := bufio.NewReader(conn).ReadString('\n')
		s.Require().NoError(err)
		s.Equal("world\n", res)
		s.Require().NoError(conn.Close())
	}

	s.Require().NoError(l.Close())
	s.waitDone(thf.Done())
}

func (s *ListenerSuite) TestDoneWithoutConnections() {
	thf := WithTracking(NewTestHandlerFactory(0))
	s.waitDone(thf.Done())
}

func (s *ListenerSuite) TestCloseTwice() {
	thf := WithTracking(NewTestHandlerFactory(0))
	l := s.setupListener(thf)

	s.NoError(l.Close())
	s.NotPanics(func() {
		s.NoError(l.Close())
	})
}
