package metricstest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/proxnode/internal/observability/metrics"
)

func TestRecorderKeepsValues(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	var nr metrics.NodeRecorder = r
	nr.RecordOperation(metrics.OpReport, metrics.StatusSkipped)
	nr.RecordError(metrics.OpScan, "scan")
	nr.RecordDuration(metrics.OpScan, 0.1)
	nr.SetDevices(2, 10)

	assert.Equal(t, 1, r.OperationCount(metrics.OpReport, metrics.StatusSkipped))
	assert.Equal(t, 1, r.ErrorCount(metrics.OpScan, "scan"))
	assert.Equal(t, []float64{0.1}, r.Durations(metrics.OpScan))
	active, capacity := r.Devices()
	assert.Equal(t, 2, active)
	assert.Equal(t, 10, capacity)
}
