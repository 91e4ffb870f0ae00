package main

import (
	"context"
	"fmt"
	"time"

	"github.com/danmuck/packetd/internal/client"
	"github.com/danmuck/packetd/internal/protocol/schema"
	"github.com/spf13/cobra"
)

func probeCmd() *cobra.Command {
	var (
		addr     string
		hs       schema.Handshake
		attempts int
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Send a handshake and wait for the reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			cfg := client.DefaultConfig()
			cfg.Address = addr
			cfg.MaxConnectAttempts = attempts
			c, err := client.Dial(ctx, cfg)
			if err != nil {
				return fmt.Errorf("probe dial: %w", err)
			}
			defer c.Close()

			start := time.Now()
			if err := c.Handshake(ctx, hs); err != nil {
				return fmt.Errorf("probe handshake: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "handshake ok addr=%s version=%q rtt=%s\n", addr, hs.Version, time.Since(start))
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:3444", "server address")
	cmd.Flags().StringVar(&hs.Version, "version", "1.0.0", "protocol version to announce")
	cmd.Flags().BoolVar(&hs.CompressionEnabled, "compression", false, "announce compression enabled")
	cmd.Flags().Int64Var(&hs.CompressionThreshold, "threshold", 64, "compression threshold")
	cmd.Flags().IntVar(&attempts, "attempts", 1, "dial attempts before giving up")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "overall probe timeout")
	return cmd
}
