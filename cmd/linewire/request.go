package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"linewire/gonet"
)

var requestCmd = &cobra.Command{
	Use:   "request [addr]",
	Short: "Write every stdin line to addr and print the answer",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		addr := address(args)

		conn, err := gonet.NewConnection(ctx, addr)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		defer conn.Close()

		out := cmd.OutOrStdout()
		_, err = forEachLine(cmd.InOrStdin(), func(line string) error {
			resp, err := conn.Call(ctx, line)
			if err != nil {
				return fmt.Errorf("request %q: %w", line, err)
			}
			fmt.Fprintln(out, resp)
			return nil
		})
		return err
	},
}

func init() {
	rootCmd.AddCommand(requestCmd)
}
