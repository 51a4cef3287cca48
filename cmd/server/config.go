// Package main provides the Nightjar server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Verbose  bool           `yaml:"-"` // set via CLI flag
}

// ServerConfig contains listener settings.
type ServerConfig struct {
	Address string    `yaml:"address"` // HTTP listen address (default: :8080)
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig contains TLS settings for the HTTP server.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// DatabaseConfig contains persistence settings. An empty path runs the
// store purely in memory.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// APIConfig contains API behavior settings.
type APIConfig struct {
	RateLimitPerTenant int    `yaml:"rate_limit_per_tenant"` // requests per second (default: 100)
	RateLimitBurst     int    `yaml:"rate_limit_burst"`      // burst size (default: 200)
	QueryTimeout       string `yaml:"query_timeout"`         // duration, e.g. "10s"
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.API.RateLimitPerTenant == 0 {
		c.API.RateLimitPerTenant = 100
	}
	if c.API.RateLimitBurst == 0 {
		c.API.RateLimitBurst = 200
	}
	if c.API.QueryTimeout == "" {
		c.API.QueryTimeout = "10s"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			return fmt.Errorf("server.tls.cert_file is required when TLS is enabled")
		}
		if c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls.key_file is required when TLS is enabled")
		}
	}
	if _, err := c.QueryTimeout(); err != nil {
		return fmt.Errorf("invalid api.query_timeout: %w", err)
	}
	if c.API.RateLimitPerTenant < 0 || c.API.RateLimitBurst < 0 {
		return fmt.Errorf("api rate limits must not be negative")
	}
	return nil
}

// QueryTimeout parses the configured query timeout.
func (c *Config) QueryTimeout() (time.Duration, error) {
	return time.ParseDuration(c.API.QueryTimeout)
}
