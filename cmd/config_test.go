// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"path/filepath"
	"testing"

	"github.com/railkit/cvscope/internal/config"
)

func TestWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cvscope", "config.toml")
	t.Setenv("CVSCOPE_CONFIG", path)

	first := config.Config{
		Connection:  config.ConnectionConfig{Port: "/dev/ttyACM0", Baud: 115200},
		Programming: config.ProgrammingConfig{RetryLimit: 5, TimeoutMs: 2000},
		Log:         config.LogConfig{Level: "info"},
	}
	if err := writeConfig(first, false); err != nil {
		t.Fatalf("writeConfig() error = %v", err)
	}

	second := first
	second.Connection.Port = "/dev/ttyUSB1"
	if err := writeConfig(second, false); err == nil {
		t.Fatal("writeConfig() replaced an existing file without force")
	}

	got, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != first {
		t.Errorf("Load() = %+v, want %+v", got, first)
	}

	if err := writeConfig(second, true); err != nil {
		t.Fatalf("writeConfig(force) error = %v", err)
	}
	got, err = config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != second {
		t.Errorf("Load() = %+v, want %+v", got, second)
	}
}
