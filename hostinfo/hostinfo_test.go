package hostinfo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"linewire/testutil"
)

type HostInfoSuite struct {
	testutil.BaseSuite
}

func TestHostInfoSuite(t *testing.T) {
	suite.Run(t, new(HostInfoSuite))
}

func (s *HostInfoSuite) TestLocalHost() {
	m := NewService().LocalHost()
	// Either both are set or neither, depending on the machine's resolver.
	s.Equal(m.Name != "", m.Address != "")
	s.Equal(m.Name != "", m.Known())
}

func (s *HostInfoSuite) TestPrefersIPv4() {
	svc := &service{
		hostname: func() (string, error) { return "box", nil },
		lookup: func(string) ([]string, error) {
			return []string{"::1", "10.0.0.7"}, nil
		},
	}
	m := svc.LocalHost()
	s.Equal(Machine{Name: "box", Address: "10.0.0.7"}, m)
	s.Equal(`10.0.0.7 ("box")`, m.String())
}

func (s *HostInfoSuite) TestHostnameFailure() {
	svc := &service{
		hostname: func() (string, error) { return "", errors.New("no hostname") },
		lookup:   func(string) ([]string, error) { return []string{"10.0.0.7"}, nil },
	}
	s.Equal(Machine{}, svc.LocalHost())
	s.False(svc.LocalHost().Known())
}

func (s *HostInfoSuite) TestLookupFailure() {
	svc := &service{
		hostname: func() (string, error) { return "box", nil },
		lookup:   func(string) ([]string, error) { return nil, errors.New("nxdomain") },
	}
	s.Equal(Machine{}, svc.LocalHost())

	svc.lookup = func(string) ([]string, error) { return nil, nil }
	s.Equal(Machine{}, svc.LocalHost())
}
