// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package config loads configuration for the qstash command line tool.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that decodes from YAML strings accepted by
// time.ParseDuration, such as "30s" or "1m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Config holds all configuration for the qstash CLI.
type Config struct {
	Token     string          `yaml:"token"`
	BaseURL   string          `yaml:"base_url"`
	Version   string          `yaml:"version"` // v1 or v2
	Timeout   Duration        `yaml:"timeout"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Breaker   BreakerConfig   `yaml:"breaker"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// RateLimitConfig holds client-side publish rate limiting settings.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	Rate    float64 `yaml:"rate"`  // publishes per second per destination
	Burst   int     `yaml:"burst"` // burst allowance
}

// BreakerConfig holds circuit breaker settings for outbound calls.
type BreakerConfig struct {
	Enabled          bool     `yaml:"enabled"`
	FailureThreshold uint32   `yaml:"failure_threshold"`
	ResetTimeout     Duration `yaml:"reset_timeout"`
}

// Default returns a Config with sensible defaults. The token comes from the
// environment or the config file.
func Default() *Config {
	return &Config{
		BaseURL: "https://qstash.upstash.io",
		Version: "v2",
		Timeout: Duration(30 * time.Second),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		RateLimit: RateLimitConfig{
			Rate:  10,
			Burst: 20,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     Duration(30 * time.Second),
		},
	}
}

// Load reads configuration from a YAML file, applies environment overrides
// and validates the result. A missing file is not an error; defaults plus
// the environment are used.
func Load(filename string) (*Config, error) {
	cfg := Default()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Environment overrides take precedence over the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("QSTASH_TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("QSTASH_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("QSTASH_API_VERSION"); v != "" {
		c.Version = v
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("token cannot be empty (set it in the config file or QSTASH_TOKEN)")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}
	if c.Version != "v1" && c.Version != "v2" {
		return fmt.Errorf("version must be v1 or v2")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("rate_limit.rate must be positive")
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("rate_limit.burst must be at least 1")
		}
	}
	if c.Breaker.Enabled {
		if c.Breaker.FailureThreshold < 1 {
			return fmt.Errorf("breaker.failure_threshold must be at least 1")
		}
		if c.Breaker.ResetTimeout < Duration(time.Second) {
			return fmt.Errorf("breaker.reset_timeout must be at least 1 second")
		}
	}
	return nil
}
