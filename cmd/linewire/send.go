package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"linewire/gonet"
)

const drainPoll = 10 * time.Millisecond

var sendCmd = &cobra.Command{
	Use:   "send [addr]",
	Short: "Write every stdin line to addr without waiting for answers",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		addr := address(args)

		conn, err := gonet.Dial(ctx, addr)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		h, err := gonet.NewHandler(conn, gonet.ModeSendOnly, nil, nil)
		if err != nil {
			_ = conn.Close()
			return err
		}
		h.Start(ctx)

		n, err := forEachLine(cmd.InOrStdin(), func(line string) error {
			h.Send(line)
			return nil
		})
		if err != nil {
			h.Stop()
			<-h.Done()
			return err
		}

		drain(ctx, h)
		h.Stop()
		<-h.Done()
		log.WithFields(log.Fields{
			"address": addr,
			"lines":   n,
		}).Debug("Sent stdin")
		return nil
	},
}

// drain waits until h has nothing left to write or has shut down.
func drain(ctx context.Context, h *gonet.Handler) {
	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()

	for h.Pending() > 0 {
		select {
		case <-ticker.C:
		case <-h.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

// forEachLine calls fn for each line of r and returns the number of lines.
func forEachLine(r io.Reader, fn func(line string) error) (int, error) {
	n := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := fn(scanner.Text()); err != nil {
			return n, err
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("failed to read input: %w", err)
	}
	return n, nil
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
