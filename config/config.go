// Package config reads the TOML configuration of the linewire tool.
//
//	[logging]
//	level = "debug"
//	report-caller = false
//	format = "text"
//
//	[network]
//	address = "localhost:7000"
//	min-conns = 1
//	max-conns = 4
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Logging LogConf
	Network NetworkConf
}

// LogConf describes the logging block.
type LogConf struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// NetworkConf describes the network block.
type NetworkConf struct {
	Address  string
	MinConns int `toml:"min-conns"`
	MaxConns int `toml:"max-conns"`
}

func Default() *Config {
	return &Config{
		Logging: LogConf{
			Level:  "info",
			Format: "text",
		},
		Network: NetworkConf{
			Address:  "localhost:7000",
			MinConns: 1,
			MaxConns: 4,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	conf := Default()
	if path == "" {
		return conf, nil
	}

	if _, err := toml.DecodeFile(path, conf); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return conf, nil
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return conf, nil
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var errs error
	// An empty level keeps the current one, see ApplyLogging.
	if c.Logging.Level != "" {
		if _, err := log.ParseLevel(c.Logging.Level); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("logging.level: %w", err))
		}
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = multierror.Append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}
	if c.Network.MaxConns < 1 {
		errs = multierror.Append(errs, fmt.Errorf("network.max-conns: must be at least 1, got %d", c.Network.MaxConns))
	}
	if c.Network.MinConns < 0 || c.Network.MinConns > c.Network.MaxConns {
		errs = multierror.Append(errs, fmt.Errorf("network.min-conns: must be within [0, %d], got %d", c.Network.MaxConns, c.Network.MinConns))
	}
	return errs
}

// ApplyLogging configures the standard logrus logger.
func (c *Config) ApplyLogging() {
	if c.Logging.Level != "" {
		if lvl, err := log.ParseLevel(c.Logging.Level); err != nil {
			log.WithFields(log.Fields{
				"level":    c.Logging.Level,
				"error":    err,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("Failed to set log level. Please select one of the provided ones")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(c.Logging.ReportCaller)

	switch c.Logging.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})

	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})

	default:
		log.Warn("Unknown logging format")
	}
}
