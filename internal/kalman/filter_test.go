package kalman

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstUpdateReturnsSample(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	assert.InDelta(t, -60.0, f.Update(-60), 1e-12)
	assert.Equal(t, 1, f.Samples())
}

func TestUpdateFollowsEquations(t *testing.T) {
	t.Parallel()

	f := New(Config{ProcessNoise: 0.1, MeasurementNoise: 4.0})
	f.Update(-60)

	// after seed: P1 = (1.1)·(4/5.1)
	p1 := 1.1 * 4.0 / 5.1
	assert.InDelta(t, p1, f.Covariance(), 1e-12)

	p := p1 + 0.1
	k := p / (p + 4.0)
	want := -60 + k*(-70-(-60))
	assert.InDelta(t, want, f.Update(-70), 1e-12)
	assert.InDelta(t, (1-k)*p, f.Covariance(), 1e-12)
}

func TestConvergesMonotonicallyWithoutOscillation(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	f.Update(-80)

	const target = -50.0
	prevGap := math.Abs(target - f.Estimate())
	for range 100 {
		x := f.Update(target)
		assert.LessOrEqual(t, x, target, "estimate must not overshoot")
		gap := math.Abs(target - x)
		assert.Less(t, gap, prevGap)
		prevGap = gap
	}
	assert.InDelta(t, target, f.Estimate(), 0.5)
}

func TestCovarianceSettles(t *testing.T) {
	t.Parallel()

	f := New(Config{ProcessNoise: 0.1, MeasurementNoise: 4.0})
	for range 500 {
		f.Update(-55)
	}
	// steady-state prior covariance solves P² - QP - QR = 0
	q, r := 0.1, 4.0
	prior := (q + math.Sqrt(q*q+4*q*r)) / 2
	assert.InDelta(t, prior*r/(prior+r), f.Covariance(), 1e-6)
}

func TestResetRestoresInitialState(t *testing.T) {
	t.Parallel()

	f := New(Config{Window: 3})
	for _, m := range []float64{-60, -62, -64} {
		f.Update(m)
	}

	f.Reset()
	assert.InDelta(t, 1.0, f.Covariance(), 1e-12)
	assert.Zero(t, f.Samples())
	assert.InDelta(t, -40.0, f.Update(-40), 1e-12, "reset filter reseeds from the next sample")
}

func TestWindowAveragesRecentSamples(t *testing.T) {
	t.Parallel()

	f := New(Config{Window: 3})
	assert.InDelta(t, -60.0, f.Update(-60), 1e-12)

	// window [-60 -66] → z = -63
	p := 1.1*4.0/5.1 + 0.1
	k := p / (p + 4.0)
	assert.InDelta(t, -60+k*(-63+60), f.Update(-66), 1e-12)

	f.Update(-66)
	f.Update(-66)
	// window now holds the last three samples only
	assert.InDelta(t, -66.0, f.presmooth(-66), 1e-12)
}

func TestDefaultsApplied(t *testing.T) {
	t.Parallel()

	f := New(Config{ProcessNoise: -1, MeasurementNoise: 0})
	assert.InDelta(t, DefaultProcessNoise, f.q, 1e-12)
	assert.InDelta(t, DefaultMeasurementNoise, f.r, 1e-12)
	assert.Nil(t, f.window)
}
