// Package hostinfo looks up the name and address of the local machine.
package hostinfo

import (
	"errors"
	"fmt"
	"net"
	"os"

	log "github.com/sirupsen/logrus"
)

// Machine is a host name and one of its addresses. Both are empty when the
// lookup failed.
type Machine struct {
	Name    string
	Address string
}

func (m Machine) String() string {
	return fmt.Sprintf("%s (%q)", m.Address, m.Name)
}

// Known reports whether the lookup succeeded.
func (m Machine) Known() bool {
	return m.Name != "" && m.Address != ""
}

type Service interface {
	// LocalHost never fails; on error it logs and returns an empty Machine.
	LocalHost() Machine
}

type service struct {
	hostname func() (string, error)
	lookup   func(host string) ([]string, error)
}

func NewService() Service {
	return &service{
		hostname: os.Hostname,
		lookup:   net.LookupHost,
	}
}

func (s *service) LocalHost() Machine {
	m, err := s.localHost()
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Warn("Failed to look up local host")
		return Machine{}
	}
	return m
}

func (s *service) localHost() (Machine, error) {
	name, err := s.hostname()
	if err != nil {
		return Machine{}, err
	}
	addrs, err := s.lookup(name)
	if err != nil {
		return Machine{}, err
	}
	if len(addrs) == 0 {
		return Machine{}, errors.New("no address for " + name)
	}
	return Machine{Name: name, Address: preferIPv4(addrs)}, nil
}

func preferIPv4(addrs []string) string {
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			return a
		}
	}
	return addrs[0]
}
