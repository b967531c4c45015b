// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/railkit/cvscope/pkg/dccex"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

var (
	discoveryTimeout int
	discoveryVerbose bool
)

var discoveryCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find DCC-EX command stations on serial ports",
	Long: `Probe every serial port for a DCC-EX command station.

Each port is opened at the configured baud rate and sent <s>. Ports that
answer with a status banner within the timeout are listed. Many boards reset
when the port is opened, so allow a few seconds for the station to boot.

Examples:
  cvscope discover
  cvscope discover --timeout 8 --baud 115200

Exit codes:
  0 - At least one command station found
  1 - No command station answered
  2 - Serial ports could not be listed`,
	Args: cobra.NoArgs,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().IntVar(&discoveryTimeout, "timeout", 5, "Timeout in seconds per port")
	discoveryCmd.Flags().BoolVarP(&discoveryVerbose, "verbose", "v", false, "Show why ports did not answer")
}

// discoveredPort is the outcome of probing one serial port
type discoveredPort struct {
	port    string
	version string
	err     error
}

// probeStation asks the station behind conn for its status banner
func probeStation(conn io.ReadWriteCloser, timeout time.Duration) (string, error) {
	client := dccex.NewClient(conn, dccex.Config{LoggerFactory: loggerFactory})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	reply, err := client.Status(ctx)
	if err != nil {
		return "", err
	}
	return reply.Version, nil
}

func probePort(port string, timeout time.Duration) discoveredPort {
	conn, err := OpenSerialConnection(port, settings.Connection.Baud)
	if err != nil {
		return discoveredPort{port: port, err: err}
	}
	version, err := probeStation(conn, timeout)
	return discoveredPort{port: port, version: version, err: err}
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list serial ports: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("cvscope - Station Discovery\n")
	fmt.Printf("Ports: %d\n", len(ports))
	fmt.Printf("Baud: %d\n", settings.Connection.Baud)
	fmt.Printf("Timeout: %d seconds\n\n", discoveryTimeout)

	timeout := time.Duration(discoveryTimeout) * time.Second
	results := make([]discoveredPort, len(ports))

	var wg sync.WaitGroup
	for i, port := range ports {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = probePort(port, timeout)
		}()
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].port < results[j].port })

	found := 0
	for _, r := range results {
		if r.err != nil {
			fmt.Printf("  %-20s -\n", r.port)
			if discoveryVerbose {
				fmt.Printf("    %v\n", r.err)
			}
			continue
		}
		found++
		fmt.Printf("  %-20s %s\n", r.port, r.version)
	}

	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Command stations found: %d\n", found)

	if found == 0 {
		fmt.Printf("No command station answered. Check the connection and the baud rate.\n")
		os.Exit(1)
	}

	return nil
}
