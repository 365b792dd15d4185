package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics contains the HTTP uplink collectors.
type HTTPMetrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration prometheus.Histogram
}

// NewHTTPMetrics creates the collectors and registers them on registry.
func NewHTTPMetrics(registry *prometheus.Registry) (*HTTPMetrics, error) {
	m := &HTTPMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_uplink_requests_total",
			Help:      "Requests sent to the aggregator by response status, 0 when no response arrived",
		}, []string{"status"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_uplink_request_duration_seconds",
			Help:      "Round-trip time of aggregator requests in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register HTTP metrics: %w", err)
	}
	return m, nil
}

// ObserveRequest records one round trip. status is 0 for transport errors.
func (m *HTTPMetrics) ObserveRequest(status int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(strconv.Itoa(status)).Inc()
	m.RequestDuration.Observe(d.Seconds())
}

// Describe implements prometheus.Collector.
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Requests.Describe(ch)
	ch <- m.RequestDuration.Desc()
}

// Collect implements prometheus.Collector.
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Requests.Collect(ch)
	ch <- m.RequestDuration
}
