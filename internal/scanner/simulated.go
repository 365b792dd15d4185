package scanner

import (
	"context"
	"math/rand/v2"
	"slices"

	"github.com/tphakala/proxnode/internal/observation"
)

// Simulated returns a fixed set of transmitters, with optional RSSI jitter.
// It stands in for a radio during bench tests and demos.
type Simulated struct {
	devices []observation.Observation
	jitter  int
	rng     *rand.Rand
}

// NewSimulated returns a scanner reporting devices on every scan. jitter
// adds a uniform ±jitter dBm offset to each sample.
func NewSimulated(devices []observation.Observation, jitter int) *Simulated {
	return &Simulated{
		devices: slices.Clone(devices),
		jitter:  max(jitter, 0),
		rng:     rand.New(rand.NewPCG(1, 2)),
	}
}

func (s *Simulated) Name() string { return TypeSimulated }

func (s *Simulated) Scan(ctx context.Context) ([]observation.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]observation.Observation, len(s.devices))
	for i, d := range s.devices {
		if s.jitter > 0 {
			d.RSSI += s.rng.IntN(2*s.jitter+1) - s.jitter
			d.RSSI = min(d.RSSI, -1)
		}
		out[i] = d.Normalize()
	}
	return out, nil
}

// SetDevices replaces the simulated set.
func (s *Simulated) SetDevices(devices []observation.Observation) {
	s.devices = slices.Clone(devices)
}

func (s *Simulated) Close() error { return nil }
