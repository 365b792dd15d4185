package uplink

import (
	"context"
	"strings"
	"time"

	"github.com/tphakala/proxnode/internal/logger"
	"github.com/tphakala/proxnode/internal/mqtt"
	"github.com/tphakala/proxnode/internal/report"
)

// DefaultTopic is the topic prefix; reports go to <prefix>/<anchor_id>.
const DefaultTopic = "proxnode/anchors"

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Broker   string
	Topic    string
	Username string
	Password string
	QoS      byte
	Retain   bool
	Timeout  time.Duration
}

// MQTT publishes reports through a broker.
type MQTT struct {
	client mqtt.Client
	topic  string
	enc    report.Encoder
	log    logger.Logger
}

func NewMQTT(client mqtt.Client, topic string, enc report.Encoder) *MQTT {
	topic = strings.TrimRight(strings.TrimSpace(topic), "/")
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTT{
		client: client,
		topic:  topic,
		enc:    enc,
		log:    GetLogger().Module("mqtt"),
	}
}

func (m *MQTT) Name() string { return TypeMQTT }

// Topic returns the topic a report for anchorID is published to.
func (m *MQTT) Topic(anchorID string) string {
	return m.topic + "/" + anchorID
}

// Send connects on first use and publishes r.
func (m *MQTT) Send(ctx context.Context, r *report.Report) (Result, error) {
	data, err := m.enc.Encode(r)
	if err != nil {
		return Result{}, err
	}

	if !m.client.IsConnected() {
		if err := m.client.Connect(ctx); err != nil {
			return Result{}, failure(err, TypeMQTT).Build()
		}
	}

	start := time.Now()
	if err := m.client.Publish(ctx, m.Topic(r.AnchorID), data); err != nil {
		latency := time.Since(start)
		return Result{Latency: latency}, failure(err, TypeMQTT).
			Context("topic", m.Topic(r.AnchorID)).
			Timing("mqtt_publish", latency).
			Build()
	}
	return Result{Bytes: len(data), Latency: time.Since(start)}, nil
}

func (m *MQTT) Close() error {
	m.client.Disconnect()
	return nil
}
