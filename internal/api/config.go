// Package api serves the node's read-only status API and the Prometheus
// scrape endpoint.
package api

import (
	"fmt"
	"net"
	"time"

	"github.com/tphakala/proxnode/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

const (
	DefaultPort            = "8080"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// Config holds the HTTP server configuration.
type Config struct {
	Enabled        bool     `yaml:"enabled" mapstructure:"enabled"`
	Host           string   `yaml:"host" mapstructure:"host"` // empty binds all interfaces
	Port           string   `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowedorigins" mapstructure:"allowedorigins"`
	Metrics        bool     `yaml:"metrics" mapstructure:"metrics"` // serve /metrics

	ReadTimeout     time.Duration `yaml:"readtimeout" mapstructure:"readtimeout"`
	WriteTimeout    time.Duration `yaml:"writetimeout" mapstructure:"writetimeout"`
	IdleTimeout     time.Duration `yaml:"idletimeout" mapstructure:"idletimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdowntimeout" mapstructure:"shutdowntimeout"`
}

// DefaultConfig returns a Config with the default port and timeouts.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Port:            DefaultPort,
		AllowedOrigins:  []string{"*"},
		Metrics:         true,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Port == "" {
		c.Port = d.Port
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}

// Validate checks the listen address.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if _, err := net.LookupPort("tcp", c.Port); err != nil {
		return fmt.Errorf("invalid port %q: %w", c.Port, err)
	}
	return nil
}

// Address returns the host:port to listen on.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}
