// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"strings"

	"github.com/pion/logging"
	"github.com/railkit/cvscope/internal/config"
	"github.com/railkit/cvscope/pkg/dcc"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Programming flags
	retryLimit int
	timeoutMs  int

	logLevel string

	// Effective settings after config file, environment and flags
	settings      config.Config
	loggerFactory logging.LoggerFactory
)

var rootCmd = &cobra.Command{
	Use:   "cvscope",
	Short: "DCC decoder programming and command station tool",
	Long: `cvscope - A CLI tool for encoding DCC packets and reading and writing decoder
configuration variables through a DCC-EX command station.

Provides commands to inspect variable indices, encode speed and function
packets, access extended (CV31/CV32) and SUSI pages on the programming track,
monitor the command station and drive a vehicle interactively.

Connection modes:
  Serial:    --port /dev/ttyACM0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Settings are read from ~/.config/cvscope/config.toml (or $CVSCOPE_CONFIG),
then CVSCOPE_* environment variables, then flags.

For WebSocket authentication, the password is read from the CVSCOPE_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Programming flags
	rootCmd.PersistentFlags().IntVar(&retryLimit, "retries", 3, "Retries per programming track operation")
	rootCmd.PersistentFlags().IntVar(&timeoutMs, "timeout-ms", 5000, "Timeout per programming track operation")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (disabled, error, warn, info, debug, trace)")
}

// loadSettings merges the config file and environment with explicitly set flags
func loadSettings(cmd *cobra.Command, args []string) error {
	c, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		c.Connection.Port = portName
	}
	if flags.Changed("baud") {
		c.Connection.Baud = baudRate
	}
	if flags.Changed("url") {
		c.Connection.URL = wsURL
	}
	if flags.Changed("username") {
		c.Connection.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		c.Connection.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("retries") {
		c.Programming.RetryLimit = retryLimit
	}
	if flags.Changed("timeout-ms") {
		c.Programming.TimeoutMs = timeoutMs
	}
	if flags.Changed("log-level") {
		c.Log.Level = logLevel
	}
	if err := c.Validate(); err != nil {
		return err
	}

	settings = c
	loggerFactory = newLoggerFactory(c.Log.Level)
	dcc.SetLoggerFactory(loggerFactory)
	return nil
}

// newLoggerFactory creates a logger factory writing to stderr
func newLoggerFactory(level string) logging.LoggerFactory {
	factory := logging.NewDefaultLoggerFactory()
	factory.Writer = os.Stderr
	factory.DefaultLogLevel = parseLogLevel(level)
	return factory
}

func parseLogLevel(level string) logging.LogLevel {
	switch strings.ToLower(level) {
	case "disabled":
		return logging.LogLevelDisabled
	case "error":
		return logging.LogLevelError
	case "info":
		return logging.LogLevelInfo
	case "debug":
		return logging.LogLevelDebug
	case "trace":
		return logging.LogLevelTrace
	default:
		return logging.LogLevelWarn
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
