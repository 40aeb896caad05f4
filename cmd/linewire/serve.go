package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"linewire/gonet"
)

var serveCmd = &cobra.Command{
	Use:   "serve [addr]",
	Short: "Answer every received line with the same line",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		echo := gonet.ProcessorFunc(func(data string, _ uint64) string {
			return data
		})
		return runListener(cmd.Context(), cmd.OutOrStdout(), address(args), gonet.NewServerFactory(echo))
	},
}

var listenCmd = &cobra.Command{
	Use:   "listen [addr]",
	Short: "Print every received line",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		var mu sync.Mutex
		printer := gonet.ProcessorFunc(func(data string, id uint64) string {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, "%d\t%s\n", id, data)
			return ""
		})
		return runListener(cmd.Context(), out, address(args), gonet.NewModeFactory(gonet.ModeListen, printer, nil))
	},
}

// runListener accepts connections on addr until ctx is done, then waits for
// the open connections to close.
func runListener(ctx context.Context, out io.Writer, addr string, factory gonet.HandlerFactory) error {
	tracking := gonet.WithTracking(factory)
	l := gonet.NewListenerForAddr(addr, tracking)
	if err := l.Start(ctx); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	fmt.Fprintf(out, "Listening on %s\n", l.Address())

	<-ctx.Done()
	if err := l.Close(); err != nil {
		log.WithFields(log.Fields{
			"address": addr,
			"error":   err,
		}).Debug("Closing listener failed")
	}

	<-tracking.Done()
	log.WithField("address", addr).Info("Listener shut down")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listenCmd)
}
