package metrics

// Recorder defines a minimal interface for recording metrics, so components
// depend on an abstraction rather than on Prometheus types.
type Recorder interface {
	// RecordOperation counts an operation with its outcome, e.g.
	// ("scan", "success") or ("upsert", "rejected_full").
	RecordOperation(operation, status string)

	// RecordDuration records how long an operation took, in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError counts an error by category.
	RecordError(operation, errorType string)
}

// NodeRecorder adds the registry gauges to Recorder.
type NodeRecorder interface {
	Recorder

	// SetDevices publishes the registry occupancy.
	SetDevices(active, capacity int)
}

// NoOpRecorder discards everything.
type NoOpRecorder struct{}

func (NoOpRecorder) RecordOperation(string, string) {}
func (NoOpRecorder) RecordDuration(string, float64) {}
func (NoOpRecorder) RecordError(string, string)     {}
func (NoOpRecorder) SetDevices(int, int)            {}
