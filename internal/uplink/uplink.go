// Package uplink delivers reports to the aggregator. A failed delivery is
// reported to the caller and never retried; the next cycle sends a fresh
// snapshot instead.
package uplink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tphakala/proxnode/internal/errors"
	"github.com/tphakala/proxnode/internal/httpclient"
	"github.com/tphakala/proxnode/internal/logger"
	"github.com/tphakala/proxnode/internal/mqtt"
	"github.com/tphakala/proxnode/internal/observability/metrics"
	"github.com/tphakala/proxnode/internal/report"
	"github.com/tphakala/proxnode/internal/timeutil"
)

// Uplink sends one report.
type Uplink interface {
	Send(ctx context.Context, r *report.Report) (Result, error)
	Name() string
	Close() error
}

// Result describes a delivered report.
type Result struct {
	Bytes      int
	StatusCode int // HTTP status, 0 for MQTT
	Latency    time.Duration
}

const (
	TypeHTTP = "http"
	TypeMQTT = "mqtt"

	DefaultTimeout     = 5 * time.Second
	DefaultMinInterval = time.Second
)

// Config selects and configures the transport.
type Config struct {
	Type   string
	Format string // json or cbor
	// MinInterval is the minimum spacing between sends.
	MinInterval time.Duration
	HTTP        HTTPConfig
	MQTT        MQTTConfig
}

// TransportMetrics are the collectors of each transport. Nil members are
// not recorded.
type TransportMetrics struct {
	HTTP *metrics.HTTPMetrics
	MQTT *metrics.MQTTMetrics
}

// New builds the configured uplink wrapped in the send limiter. userAgent
// is sent with HTTP requests.
func New(cfg Config, anchorID, userAgent string, tm TransportMetrics, clock timeutil.Clock) (Uplink, error) {
	enc, err := report.NewEncoder(cfg.Format)
	if err != nil {
		return nil, err
	}

	var u Uplink
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case TypeHTTP, "":
		client := httpclient.New(&httpclient.Config{
			DefaultTimeout: cfg.HTTP.Timeout,
			UserAgent:      userAgent,
		})
		u, err = NewHTTP(cfg.HTTP, client, enc, tm.HTTP)
	case TypeMQTT:
		mc := mqtt.DefaultConfig()
		mc.Broker = cfg.MQTT.Broker
		mc.ClientID = anchorID
		mc.Username = cfg.MQTT.Username
		mc.Password = cfg.MQTT.Password
		mc.QoS = cfg.MQTT.QoS
		mc.Retain = cfg.MQTT.Retain
		if cfg.MQTT.Timeout > 0 {
			mc.PublishTimeout = cfg.MQTT.Timeout
		}
		var client mqtt.Client
		client, err = mqtt.NewClient(mc, tm.MQTT)
		if err == nil {
			u = NewMQTT(client, cfg.MQTT.Topic, enc)
		}
	default:
		err = errors.Newf("unknown uplink type %q", cfg.Type).
			Component("uplink").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err != nil {
		return nil, err
	}

	return NewLimited(u, cfg.MinInterval, clock), nil
}

// GetLogger returns the uplink module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("uplink")
}

// failure wraps err as an ErrUplinkFailure.
func failure(err error, transport string) *errors.ErrorBuilder {
	return errors.New(fmt.Errorf("%w: %w", errors.ErrUplinkFailure, err)).
		Component("uplink").
		Category(errors.CategoryUplink).
		Context("transport", transport)
}
