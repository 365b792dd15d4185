package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gather returns the metric family with name from registry.
func gather(t *testing.T, registry *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	if len(m.GetLabel()) != len(want) {
		return false
	}
	for _, lp := range m.GetLabel() {
		if want[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

func counterValue(t *testing.T, mf *dto.MetricFamily, labels map[string]string) float64 {
	t.Helper()
	for _, m := range mf.GetMetric() {
		if labelsMatch(m, labels) {
			return m.GetCounter().GetValue()
		}
	}
	t.Fatalf("no %s sample with labels %v", mf.GetName(), labels)
	return 0
}

func TestNodeMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewNodeMetrics(registry)
	require.NoError(t, err)

	m.RecordOperation(OpScan, StatusSuccess)
	m.RecordOperation(OpScan, StatusSuccess)
	m.RecordOperation(OpUpsert, "rejected_full")
	m.RecordDuration(OpScan, 0.3)
	m.RecordError(OpUplink, "uplink")
	m.SetDevices(4, 10)

	ops := gather(t, registry, "proxnode_operations_total")
	assert.InDelta(t, 2, counterValue(t, ops, map[string]string{"operation": OpScan, "status": StatusSuccess}), 0)
	assert.InDelta(t, 1, counterValue(t, ops, map[string]string{"operation": OpUpsert, "status": "rejected_full"}), 0)

	errs := gather(t, registry, "proxnode_errors_total")
	assert.InDelta(t, 1, counterValue(t, errs, map[string]string{"operation": OpUplink, "category": "uplink"}), 0)

	hist := gather(t, registry, "proxnode_operation_duration_seconds")
	require.Len(t, hist.GetMetric(), 1)
	assert.Equal(t, uint64(1), hist.GetMetric()[0].GetHistogram().GetSampleCount())

	assert.InDelta(t, 4, gather(t, registry, "proxnode_registry_devices").GetMetric()[0].GetGauge().GetValue(), 0)
	assert.InDelta(t, 10, gather(t, registry, "proxnode_registry_capacity").GetMetric()[0].GetGauge().GetValue(), 0)
}

func TestHTTPMetricsObserveRequest(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(registry)
	require.NoError(t, err)

	m.ObserveRequest(200, 20*time.Millisecond)
	m.ObserveRequest(200, 30*time.Millisecond)
	m.ObserveRequest(0, time.Second)

	reqs := gather(t, registry, "proxnode_http_uplink_requests_total")
	assert.InDelta(t, 2, counterValue(t, reqs, map[string]string{"status": "200"}), 0)
	assert.InDelta(t, 1, counterValue(t, reqs, map[string]string{"status": "0"}), 0)

	hist := gather(t, registry, "proxnode_http_uplink_request_duration_seconds")
	assert.Equal(t, uint64(3), hist.GetMetric()[0].GetHistogram().GetSampleCount())

	var nilMetrics *HTTPMetrics
	assert.NotPanics(t, func() { nilMetrics.ObserveRequest(500, time.Second) })
}

func TestNodeMetricsDoubleRegistrationFails(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewNodeMetrics(registry)
	require.NoError(t, err)
	_, err = NewNodeMetrics(registry)
	require.Error(t, err)
}

func TestMQTTMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewMQTTMetrics(registry)
	require.NoError(t, err)

	m.UpdateConnectionStatus(true)
	m.ObservePublish(512, 20*time.Millisecond)
	m.IncrementErrors()

	assert.InDelta(t, 1, gather(t, registry, "proxnode_mqtt_connection_status").GetMetric()[0].GetGauge().GetValue(), 0)
	assert.InDelta(t, 1, gather(t, registry, "proxnode_mqtt_messages_delivered_total").GetMetric()[0].GetCounter().GetValue(), 0)
	assert.InDelta(t, 1, gather(t, registry, "proxnode_mqtt_errors_total").GetMetric()[0].GetCounter().GetValue(), 0)
	assert.Positive(t, gather(t, registry, "proxnode_mqtt_last_connect_time_seconds").GetMetric()[0].GetGauge().GetValue())

	m.UpdateConnectionStatus(false)
	assert.Zero(t, gather(t, registry, "proxnode_mqtt_connection_status").GetMetric()[0].GetGauge().GetValue())
}

func TestNilMQTTMetricsIsSafe(t *testing.T) {
	t.Parallel()

	var m *MQTTMetrics
	m.UpdateConnectionStatus(true)
	m.ObservePublish(1, time.Millisecond)
	m.IncrementErrors()
}
