package ranging

import (
	"math"
)

const (
	DefaultMinDistance = 0.1
	DefaultMaxDistance = 20.0

	// highBandFactor corrects 5 GHz channels when the table does not
	// carry an explicit factor.
	highBandFactor = 0.9
	// lastLowBandChannel is the highest 2.4 GHz channel number.
	lastLowBandChannel = 14
)

// EstimatorConfig bounds and tunes the estimator.
type EstimatorConfig struct {
	MinDistance float64
	MaxDistance float64
	// BandCorrection applies highBandFactor above channel 14 for entries
	// without their own BandFactor.
	BandCorrection bool
}

// Estimator maps (smoothed RSSI, channel) to metres.
type Estimator struct {
	table *Table
	cfg   EstimatorConfig
}

// NewEstimator returns an estimator over table. Zero bounds take the
// defaults; inverted bounds are swapped.
func NewEstimator(table *Table, cfg EstimatorConfig) *Estimator {
	if cfg.MinDistance <= 0 {
		cfg.MinDistance = DefaultMinDistance
	}
	if cfg.MaxDistance <= 0 {
		cfg.MaxDistance = DefaultMaxDistance
	}
	if cfg.MinDistance > cfg.MaxDistance {
		cfg.MinDistance, cfg.MaxDistance = cfg.MaxDistance, cfg.MinDistance
	}
	return &Estimator{table: table, cfg: cfg}
}

// Estimate returns the clamped distance in metres. The result never
// increases as smoothed grows for a fixed channel.
func (e *Estimator) Estimate(smoothed float64, channel int) float64 {
	if math.IsNaN(smoothed) {
		return e.cfg.MaxDistance
	}

	entry := e.table.Lookup(channel)
	if smoothed >= entry.A {
		return e.cfg.MinDistance
	}

	d := math.Pow(10, (entry.A-smoothed)/(10*entry.N))

	switch {
	case entry.BandFactor > 0:
		d *= entry.BandFactor
	case e.cfg.BandCorrection && channel > lastLowBandChannel:
		d *= highBandFactor
	}

	return e.clamp(d)
}

// Bounds returns the clamp interval.
func (e *Estimator) Bounds() (lo, hi float64) {
	return e.cfg.MinDistance, e.cfg.MaxDistance
}

// Table returns the calibration table in use.
func (e *Estimator) Table() *Table {
	return e.table
}

func (e *Estimator) clamp(d float64) float64 {
	if math.IsInf(d, 1) || d > e.cfg.MaxDistance {
		return e.cfg.MaxDistance
	}
	if d < e.cfg.MinDistance {
		return e.cfg.MinDistance
	}
	return d
}
