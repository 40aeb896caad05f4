package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"linewire/hostinfo"
)

// hostService is replaced in tests.
var hostService = hostinfo.NewService()

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Show the local host name and address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := hostService.LocalHost()
		if !m.Known() {
			return errors.New("local host lookup failed")
		}
		fmt.Fprintln(cmd.OutOrStdout(), m)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hostCmd)
}
