// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	pingTimeout  int
	pingCount    int
	pingInterval int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test the connection by requesting the station status",
	Long: `Send <s> to the command station and wait for its status banner.

Junk and framing errors on the connection are ignored; only a complete
<iDCC-EX ...> banner counts as a response.

Exit codes:
  0 - Every request was answered before the timeout
  1 - A request timed out
  2 - Connection error

Useful for testing connectivity to a DCC-EX station or WebSocket bridge.`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 10, "Timeout in seconds to wait for each response")
	pingCmd.Flags().IntVarP(&pingCount, "count", "c", 1, "Number of requests to send")
	pingCmd.Flags().IntVar(&pingInterval, "interval", 1000, "Interval between requests in milliseconds")
}

func runPing(cmd *cobra.Command, args []string) error {
	client, connInfo, err := OpenClient(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer client.Close()

	fmt.Printf("cvscope - Ping\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n\n", pingTimeout)

	var total time.Duration
	for i := 0; i < pingCount; i++ {
		if i > 0 {
			time.Sleep(time.Duration(pingInterval) * time.Millisecond)
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(pingTimeout)*time.Second)
		start := time.Now()
		reply, err := client.Status(ctx)
		elapsed := time.Since(start)
		cancel()

		switch {
		case err == nil:
			total += elapsed
			fmt.Printf("Response %d: %s (%s)\n", i+1, reply.Version, elapsed.Round(time.Millisecond))

		case errors.Is(err, context.DeadlineExceeded):
			fmt.Fprintf(os.Stderr, "TIMEOUT: No status received within %d seconds\n", pingTimeout)
			os.Exit(1)

		default:
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			os.Exit(2)
		}
	}

	if pingCount > 0 {
		fmt.Printf("\nSUCCESS: %d responses, average %s\n",
			pingCount, (total / time.Duration(pingCount)).Round(time.Millisecond))
	}
	return nil
}

