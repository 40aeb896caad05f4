package testutil

import (
	"net"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type BaseSuite struct {
	suite.Suite
}

// SetupSuite sets the log level from TEST_LOG_LEVEL, warn by default.
func (s *BaseSuite) SetupSuite() {
	lvl, err := log.ParseLevel(s.StrEnv("TEST_LOG_LEVEL", "warn"))
	s.Require().NoError(err)
	log.SetLevel(lvl)
}

func (s *BaseSuite) StrEnv(env string, defaultValue string) string {
	strValue := os.Getenv(env)
	if strValue == "" {
		return defaultValue
	}

	return strValue
}

func (s *BaseSuite) IntEnv(env string, defaultValue int) int {
	strValue := os.Getenv(env)
	if strValue == "" {
		return defaultValue
	}

	i, err := strconv.Atoi(strValue)
	s.Require().NoError(err)
	return i
}

// ConnPair returns both ends of a loopback TCP connection.
func (s *BaseSuite) ConnPair() (local net.Conn, remote net.Conn) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	defer func() { _ = ln.Close() }()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()

	local, err = net.Dial("tcp", ln.Addr().String())
	s.Require().NoError(err)
	remote, ok := <-accepted
	s.Require().True(ok, "accept failed")
	return local, remote
}
