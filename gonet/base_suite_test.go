package gonet

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"linewire/testutil"
)

const waitTimeout = 5 * time.Second

type BaseSuite struct {
	testutil.BaseSuite

	logs *test.Hook
}

func (s *BaseSuite) SetupTest() {
	s.logs = test.NewGlobal()
}

func (s *BaseSuite) TearDownTest() {
	logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
}

func (s *BaseSuite) setupListener(h HandlerFactory) *Listener {
	l := NewListenerForAddr("127.0.0.1:0", h)
	err := l.Start(context.Background())
	s.Require().NoError(err)

	return l
}

// warnings returns the logged entries at warn level or above.
func (s *BaseSuite) warnings() []*logrus.Entry {
	var out []*logrus.Entry
	for _, e := range s.logs.AllEntries() {
		if e.Level <= logrus.WarnLevel {
			out = append(out, e)
		}
	}
	return out
}

func (s *BaseSuite) waitDone(ch <-chan struct{}) {
	select {
	case <-ch:
	case <-time.After(waitTimeout):
		s.FailNow("timed out waiting for done")
	}
}

func (s *BaseSuite) timeout() <-chan time.Time {
	return time.After(waitTimeout)
}

func (s *BaseSuite) readWithTimeout(conn net.Conn) {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(waitTimeout)))
}

func echo(data string, _ uint64) string {
	return data
}
