// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/railkit/cvscope/internal/config"
	"github.com/spf13/cobra"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the cvscope config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective settings to the config file",
	Long: `Write the settings in effect, after the config file, CVSCOPE_* environment
variables and flags are merged, to ~/.config/cvscope/config.toml (or
$CVSCOPE_CONFIG). An existing file is only replaced with --force.

The WebSocket password is never written.

Examples:
  cvscope config init --port /dev/ttyACM0 --retries 5
  cvscope config init --url ws://station.local/ws --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := writeConfig(settings, configForce); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", config.Path())
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.Path())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Replace an existing config file")
}

// writeConfig saves c unless a config file exists and force is not set
func writeConfig(c config.Config, force bool) error {
	path := config.Path()
	if !force {
		_, err := os.Stat(path)
		if err == nil {
			return fmt.Errorf("%s already exists, use --force to replace it", path)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat config: %w", err)
		}
	}
	return config.Save(c)
}
