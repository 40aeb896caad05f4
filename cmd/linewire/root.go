package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"linewire/config"
)

var (
	cfgFile  string
	logLevel string

	// Set during PersistentPreRunE.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "linewire",
	Short: "Line protocol endpoints over TCP",
	Long: `linewire runs the four endpoint modes of the delimited line protocol:
serve answers each line, listen prints incoming lines, send writes stdin
lines and request writes stdin lines and prints each response.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		cfg.ApplyLogging()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: panic,fatal,error,warn,info,debug,trace")
}

// address returns the first argument or the configured address.
func address(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.Network.Address
}
