// Package kalman implements the scalar Kalman filter that smooths one
// transmitter's RSSI series.
package kalman

const (
	DefaultProcessNoise     = 0.1
	DefaultMeasurementNoise = 4.0

	// initialCovariance is P after creation and after Reset.
	initialCovariance = 1.0
)

// Config holds the fixed noise parameters of a filter.
type Config struct {
	ProcessNoise     float64 // Q
	MeasurementNoise float64 // R
	// Window > 1 averages the last Window raw samples before the Kalman
	// step. 0 and 1 disable pre-smoothing.
	Window int
}

func (c Config) withDefaults() Config {
	if c.ProcessNoise <= 0 {
		c.ProcessNoise = DefaultProcessNoise
	}
	if c.MeasurementNoise <= 0 {
		c.MeasurementNoise = DefaultMeasurementNoise
	}
	if c.Window < 1 {
		c.Window = 1
	}
	return c
}

// Filter is a one-dimensional Kalman filter. The first measurement seeds the
// estimate, so a new filter reports the first raw sample unchanged.
type Filter struct {
	x, p   float64
	q, r   float64
	seeded bool
	n      int

	window []float64
	next   int
}

// New returns an unseeded filter with P = 1.
func New(cfg Config) *Filter {
	cfg = cfg.withDefaults()
	f := &Filter{
		p: initialCovariance,
		q: cfg.ProcessNoise,
		r: cfg.MeasurementNoise,
	}
	if cfg.Window > 1 {
		f.window = make([]float64, 0, cfg.Window)
	}
	return f
}

// Update folds measurement m into the estimate and returns the new estimate.
func (f *Filter) Update(m float64) float64 {
	f.n++
	z := f.presmooth(m)

	if !f.seeded {
		f.x = z
		f.seeded = true
	}

	f.p += f.q
	k := f.p / (f.p + f.r)
	f.x += k * (z - f.x)
	f.p = (1 - k) * f.p

	return f.x
}

// presmooth returns the mean of the retained window including m.
func (f *Filter) presmooth(m float64) float64 {
	if f.window == nil {
		return m
	}
	if len(f.window) < cap(f.window) {
		f.window = append(f.window, m)
	} else {
		f.window[f.next] = m
		f.next = (f.next + 1) % len(f.window)
	}
	var sum float64
	for _, v := range f.window {
		sum += v
	}
	return sum / float64(len(f.window))
}

// Reset discards the estimate and sets P back to 1.
func (f *Filter) Reset() {
	f.x = 0
	f.p = initialCovariance
	f.seeded = false
	f.n = 0
	if f.window != nil {
		f.window = f.window[:0]
		f.next = 0
	}
}

// Estimate returns the current estimate, 0 before the first update.
func (f *Filter) Estimate() float64 {
	return f.x
}

// Covariance returns the current error covariance P.
func (f *Filter) Covariance() float64 {
	return f.p
}

// Samples returns the number of updates since creation or Reset.
func (f *Filter) Samples() int {
	return f.n
}
