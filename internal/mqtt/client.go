package mqtt

import (
	"context"
	"fmt"
	stdlog "log"
	"net"
	"net/url"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/tphakala/proxnode/internal/errors"
	"github.com/tphakala/proxnode/internal/logger"
	"github.com/tphakala/proxnode/internal/observability/metrics"
)

var pahoLoggersOnce sync.Once

// routePahoLogs sends paho's package level error and warning output through
// the node logger.
func routePahoLogs(log logger.Logger) {
	pahoLoggersOnce.Do(func() {
		paho.ERROR = stdlog.New(logger.NewLogWriter(log, logger.LogLevelError), "", 0)
		paho.CRITICAL = stdlog.New(logger.NewLogWriter(log, logger.LogLevelError), "", 0)
		paho.WARN = stdlog.New(logger.NewLogWriter(log, logger.LogLevelWarn), "", 0)
	})
}

// client implements Client on top of paho.
type client struct {
	config   Config
	internal paho.Client
	mu       sync.Mutex
	metrics  *metrics.MQTTMetrics
	log      logger.Logger
}

// NewClient validates cfg and returns an unconnected client. m may be nil.
func NewClient(cfg Config, m *metrics.MQTTMetrics) (Client, error) {
	cfg = cfg.withDefaults()
	if err := validateBroker(cfg.Broker); err != nil {
		return nil, errors.New(err).
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.ClientID == "" {
		return nil, errors.Newf("mqtt client id is required").
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}

	log := logger.Global().Module("mqtt").With(logger.String("broker", logger.RedactSensitiveData(cfg.Broker)))
	routePahoLogs(log)

	return &client{config: cfg, metrics: m, log: log}, nil
}

func validateBroker(broker string) error {
	if broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	u, err := url.Parse(broker)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}
	switch u.Scheme {
	case "tcp", "ssl", "tls", "mqtt", "mqtts", "ws", "wss":
	default:
		return fmt.Errorf("unsupported broker scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("broker URL %q has no host", broker)
	}
	return nil
}

// Connect resolves the broker host and connects.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internal != nil && c.internal.IsConnected() {
		return nil
	}

	u, _ := url.Parse(c.config.Broker)
	if host := u.Hostname(); net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return c.connectError(fmt.Errorf("failed to resolve hostname %s: %w", host, err))
		}
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(c.config.MaxReconnectDelay)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.internal = paho.NewClient(opts)

	token := c.internal.Connect()
	if err := waitToken(ctx, token, c.config.ConnectTimeout); err != nil {
		c.metrics.IncrementErrors()
		return c.connectError(err)
	}
	return nil
}

func (c *client) connectError(err error) error {
	return errors.New(fmt.Errorf("mqtt connect: %w", err)).
		Component("mqtt").
		Category(errors.CategoryMQTT).
		NetworkContext(logger.RedactSensitiveData(c.config.Broker), c.config.ConnectTimeout).
		Build()
}

// Publish sends payload with the configured QoS and retain flag.
func (c *client) Publish(ctx context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	internal := c.internal
	c.mu.Unlock()

	if internal == nil || !internal.IsConnected() {
		return errors.Newf("not connected to MQTT broker").
			Component("mqtt").
			Category(errors.CategoryMQTT).
			Build()
	}

	start := time.Now()
	token := internal.Publish(topic, c.config.QoS, c.config.Retain, payload)
	if err := waitToken(ctx, token, c.config.PublishTimeout); err != nil {
		c.metrics.IncrementErrors()
		return errors.New(fmt.Errorf("mqtt publish: %w", err)).
			Component("mqtt").
			Category(errors.CategoryMQTT).
			Context("topic", topic).
			Build()
	}
	c.metrics.ObservePublish(len(payload), time.Since(start))
	c.log.Debug("report published", logger.String("topic", topic), logger.Int("bytes", len(payload)))
	return nil
}

// waitToken waits for token to complete, for timeout to pass or for ctx to
// be cancelled, whichever happens first.
func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.internal != nil && c.internal.IsConnected()
}

func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internal == nil {
		return
	}
	c.internal.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
	c.internal = nil
	c.metrics.UpdateConnectionStatus(false)
}

func (c *client) onConnect(paho.Client) {
	c.log.Info("connected to MQTT broker")
	c.metrics.UpdateConnectionStatus(true)
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	c.log.Warn("connection to MQTT broker lost, reconnecting", logger.Error(err))
	c.metrics.UpdateConnectionStatus(false)
	c.metrics.IncrementErrors()
}
