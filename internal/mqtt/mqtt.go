// Package mqtt wraps the paho MQTT client for publishing reports.
package mqtt

import (
	"context"
	"time"
)

// Client defines the MQTT operations used by the uplink.
type Client interface {
	// Connect connects to the broker. Lost connections are re-established
	// in the background afterwards.
	Connect(ctx context.Context) error

	// Publish sends payload to topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	IsConnected() bool

	// Disconnect closes the connection and stops reconnecting.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker   string // e.g. tcp://aggregator:1883
	ClientID string
	Username string
	Password string
	QoS      byte
	Retain   bool

	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
	MaxReconnectDelay time.Duration
}

// DefaultConfig returns a Config with reasonable default values.
func DefaultConfig() Config {
	return Config{
		QoS:               1,
		ConnectTimeout:    10 * time.Second,
		PublishTimeout:    5 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
		MaxReconnectDelay: 2 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = d.PublishTimeout
	}
	if c.DisconnectTimeout <= 0 {
		c.DisconnectTimeout = d.DisconnectTimeout
	}
	if c.MaxReconnectDelay <= 0 {
		c.MaxReconnectDelay = d.MaxReconnectDelay
	}
	if c.QoS > 2 {
		c.QoS = d.QoS
	}
	return c
}
