// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	t.Setenv("CVSCOPE_CONFIG", path)
	return path
}

func TestLoad_Defaults(t *testing.T) {
	useConfigFile(t, "")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 115200, c.Connection.Baud)
	assert.Empty(t, c.Connection.Port)
	assert.Equal(t, 3, c.Programming.RetryLimit)
	assert.Equal(t, 5*time.Second, c.Programming.Timeout())
	assert.Equal(t, "warn", c.Log.Level)
}

func TestLoad_File(t *testing.T) {
	useConfigFile(t, `
[connection]
port = "/dev/ttyACM0"
no_ssl_verify = true

[programming]
retry_limit = 5
timeout_ms = 2500
`)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", c.Connection.Port)
	assert.True(t, c.Connection.NoSSLVerify)
	assert.Equal(t, 5, c.Programming.RetryLimit)
	assert.Equal(t, 2500*time.Millisecond, c.Programming.Timeout())
	assert.Equal(t, 115200, c.Connection.Baud)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	useConfigFile(t, `
[programming]
retry_limit = 5
`)
	t.Setenv("CVSCOPE_PROGRAMMING_RETRY_LIMIT", "1")
	t.Setenv("CVSCOPE_CONNECTION_URL", "ws://station.local/ws")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, c.Programming.RetryLimit)
	assert.Equal(t, "ws://station.local/ws", c.Connection.URL)
}

func TestLoad_Invalid(t *testing.T) {
	useConfigFile(t, `
[log]
level = "loud"
`)

	_, err := Load()
	assert.ErrorContains(t, err, "log.level")
}

func TestSave_RoundTrip(t *testing.T) {
	path := useConfigFile(t, "")

	want := Config{
		Connection:  ConnectionConfig{Port: "/dev/ttyUSB0", Baud: 57600},
		Programming: ProgrammingConfig{RetryLimit: 2, TimeoutMs: 1000},
		Log:         LogConfig{Level: "debug"},
	}
	require.NoError(t, Save(want))
	assert.FileExists(t, path)

	got, err := Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
