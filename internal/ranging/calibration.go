// Package ranging converts smoothed signal strength into distance with a
// per-channel log-distance path-loss model.
package ranging

import (
	"fmt"
	"slices"
)

// DefaultEntry applies to channels missing from the calibration table.
var DefaultEntry = Entry{N: 2.5, A: -45}

// Entry holds the path-loss constants for one channel.
type Entry struct {
	Channel    int     `yaml:"channel" mapstructure:"channel"`
	N          float64 `yaml:"n" mapstructure:"n"`                   // path-loss exponent
	A          float64 `yaml:"a" mapstructure:"a"`                   // RSSI at 1 m, dBm
	BandFactor float64 `yaml:"bandfactor" mapstructure:"bandfactor"` // distance multiplier, 0 defers to the estimator
}

func (e Entry) validate() error {
	if e.N <= 0 {
		return fmt.Errorf("channel %d: path-loss exponent must be positive, got %g", e.Channel, e.N)
	}
	if e.BandFactor < 0 {
		return fmt.Errorf("channel %d: band factor must not be negative, got %g", e.Channel, e.BandFactor)
	}
	return nil
}

// Table is a read-only channel to Entry lookup.
type Table struct {
	entries map[int]Entry
	def     Entry
}

// NewTable validates entries and builds a table. A zero def selects
// DefaultEntry.
func NewTable(entries []Entry, def Entry) (*Table, error) {
	if def.N == 0 && def.A == 0 {
		def = DefaultEntry
	}
	def.Channel = 0
	if err := def.validate(); err != nil {
		return nil, fmt.Errorf("default calibration: %w", err)
	}

	t := &Table{entries: make(map[int]Entry, len(entries)), def: def}
	for _, e := range entries {
		if e.Channel <= 0 {
			return nil, fmt.Errorf("calibration channel must be positive, got %d", e.Channel)
		}
		if err := e.validate(); err != nil {
			return nil, err
		}
		if _, dup := t.entries[e.Channel]; dup {
			return nil, fmt.Errorf("duplicate calibration for channel %d", e.Channel)
		}
		t.entries[e.Channel] = e
	}
	return t, nil
}

// Lookup returns the entry for channel, or the default entry with Channel
// set to the requested channel.
func (t *Table) Lookup(channel int) Entry {
	if e, ok := t.entries[channel]; ok {
		return e
	}
	e := t.def
	e.Channel = channel
	return e
}

// Default returns the fallback entry.
func (t *Table) Default() Entry {
	return t.def
}

// Entries returns the configured entries ordered by channel.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return a.Channel - b.Channel })
	return out
}
