// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Connection  ConnectionConfig  `mapstructure:"connection"`
	Programming ProgrammingConfig `mapstructure:"programming"`
	Log         LogConfig         `mapstructure:"log"`
}

// ConnectionConfig selects how to reach the command station.
type ConnectionConfig struct {
	Port        string `mapstructure:"port"`
	Baud        int    `mapstructure:"baud"`
	URL         string `mapstructure:"url"`
	Username    string `mapstructure:"username"`
	NoSSLVerify bool   `mapstructure:"no_ssl_verify"`
}

// ProgrammingConfig holds programming track settings.
type ProgrammingConfig struct {
	RetryLimit int `mapstructure:"retry_limit"`
	TimeoutMs  int `mapstructure:"timeout_ms"`
}

// Timeout returns the per operation timeout.
func (p ProgrammingConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Path returns the config file location. CVSCOPE_CONFIG overrides the default.
func Path() string {
	if path := os.Getenv("CVSCOPE_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "cvscope", "config.toml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("connection.port", "")
	v.SetDefault("connection.baud", 115200)
	v.SetDefault("connection.url", "")
	v.SetDefault("connection.username", "")
	v.SetDefault("connection.no_ssl_verify", false)
	v.SetDefault("programming.retry_limit", 3)
	v.SetDefault("programming.timeout_ms", 5000)
	v.SetDefault("log.level", "warn")
}

// Load reads configuration from file and env. Env var overrides use prefix CVSCOPE_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	v.SetConfigFile(Path())

	v.SetEnvPrefix("CVSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// read config file if present
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config %s: %w", Path(), err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings that cannot work.
func (c Config) Validate() error {
	if c.Connection.Baud <= 0 {
		return fmt.Errorf("invalid connection.baud: %d", c.Connection.Baud)
	}
	if c.Programming.RetryLimit < 0 {
		return fmt.Errorf("invalid programming.retry_limit: %d", c.Programming.RetryLimit)
	}
	if c.Programming.TimeoutMs <= 0 {
		return fmt.Errorf("invalid programming.timeout_ms: %d", c.Programming.TimeoutMs)
	}
	switch strings.ToLower(c.Log.Level) {
	case "disabled", "error", "warn", "info", "debug", "trace":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	return nil
}

// Save writes the provided config to disk, creating the config directory if needed.
// The WebSocket password is never stored; use CVSCOPE_PASSWORD instead.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("connection.port", cfg.Connection.Port)
	v.Set("connection.baud", cfg.Connection.Baud)
	v.Set("connection.url", cfg.Connection.URL)
	v.Set("connection.username", cfg.Connection.Username)
	v.Set("connection.no_ssl_verify", cfg.Connection.NoSSLVerify)
	v.Set("programming.retry_limit", cfg.Programming.RetryLimit)
	v.Set("programming.timeout_ms", cfg.Programming.TimeoutMs)
	v.Set("log.level", cfg.Log.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
