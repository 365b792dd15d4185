package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// NodeMetrics holds the scan cycle collectors. It implements NodeRecorder.
type NodeMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	devicesActive     prometheus.Gauge
	devicesCapacity   prometheus.Gauge
}

// NewNodeMetrics creates the collectors and registers them on registry.
func NewNodeMetrics(registry *prometheus.Registry) (*NodeMetrics, error) {
	m := &NodeMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Scan cycle operations by outcome",
		}, []string{"operation", "status"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of scan cycle operations",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by operation and category",
		}, []string{"operation", "category"}),
		devicesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_devices",
			Help:      "Devices currently tracked",
		}),
		devicesCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_capacity",
			Help:      "Maximum number of tracked devices",
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register node metrics: %w", err)
	}
	return m, nil
}

func (m *NodeMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

func (m *NodeMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

func (m *NodeMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

func (m *NodeMetrics) SetDevices(active, capacity int) {
	m.devicesActive.Set(float64(active))
	m.devicesCapacity.Set(float64(capacity))
}

// Describe implements prometheus.Collector.
func (m *NodeMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.operationDuration.Describe(ch)
	m.errorsTotal.Describe(ch)
	ch <- m.devicesActive.Desc()
	ch <- m.devicesCapacity.Desc()
}

// Collect implements prometheus.Collector.
func (m *NodeMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.operationDuration.Collect(ch)
	m.errorsTotal.Collect(ch)
	ch <- m.devicesActive
	ch <- m.devicesCapacity
}
