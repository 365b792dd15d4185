// Package metricstest provides an in-memory metrics recorder for tests.
package metricstest

import (
	"sync"

	"github.com/tphakala/proxnode/internal/observability/metrics"
)

var _ metrics.NodeRecorder = (*Recorder)(nil)

// Recorder keeps every recorded value so tests can assert on them.
type Recorder struct {
	mu         sync.RWMutex
	operations map[string]map[string]int // operation -> status -> count
	durations  map[string][]float64
	errors     map[string]map[string]int // operation -> category -> count
	active     int
	capacity   int
}

func NewRecorder() *Recorder {
	return &Recorder{
		operations: make(map[string]map[string]int),
		durations:  make(map[string][]float64),
		errors:     make(map[string]map[string]int),
	}
}

func (r *Recorder) RecordOperation(operation, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.operations[operation] == nil {
		r.operations[operation] = make(map[string]int)
	}
	r.operations[operation][status]++
}

func (r *Recorder) RecordDuration(operation string, seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations[operation] = append(r.durations[operation], seconds)
}

func (r *Recorder) RecordError(operation, errorType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errors[operation] == nil {
		r.errors[operation] = make(map[string]int)
	}
	r.errors[operation][errorType]++
}

func (r *Recorder) SetDevices(active, capacity int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active, r.capacity = active, capacity
}

// OperationCount returns how often operation was recorded with status.
func (r *Recorder) OperationCount(operation, status string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.operations[operation][status]
}

// ErrorCount returns how often an error of category was recorded for
// operation.
func (r *Recorder) ErrorCount(operation, category string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.errors[operation][category]
}

// Durations returns a copy of the durations recorded for operation.
func (r *Recorder) Durations(operation string) []float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]float64(nil), r.durations[operation]...)
}

// Devices returns the last registry occupancy set.
func (r *Recorder) Devices() (active, capacity int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active, r.capacity
}
