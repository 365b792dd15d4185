// Package registry keeps the bounded set of currently visible transmitters
// together with their per-device signal filters.
//
// A Registry has a single writer. Upsert, EvictStale, Snapshot and
// CountActive must be called from the same goroutine; other goroutines read
// the snapshots the scan cycle publishes.
package registry

import (
	"cmp"
	"slices"
	"time"

	"github.com/tphakala/proxnode/internal/kalman"
	"github.com/tphakala/proxnode/internal/logger"
	"github.com/tphakala/proxnode/internal/observation"
	"github.com/tphakala/proxnode/internal/ranging"
	"github.com/tphakala/proxnode/internal/timeutil"
)

const (
	DefaultCapacity = 10

	// plausible RSSI range for a received frame, dBm
	minRSSI = -127
	maxRSSI = 0
)

// Config sizes the registry and tunes the filters it creates.
type Config struct {
	Capacity  int
	Blocklist []string // own interface addresses, never tracked
	Filter    kalman.Config
}

type record struct {
	dev    Device
	filter *kalman.Filter
	// revealed is set once the hidden placeholder has been replaced.
	revealed bool
}

// Registry is a bounded map of BSSID to tracked device.
type Registry struct {
	capacity  int
	filterCfg kalman.Config
	blocked   map[string]struct{}
	records   map[string]*record
	estimator *ranging.Estimator
	clock     timeutil.Clock
	log       logger.Logger
}

// New creates an empty registry. A nil clock uses the wall clock.
func New(cfg Config, est *ranging.Estimator, clock timeutil.Clock) *Registry {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	blocked := make(map[string]struct{}, len(cfg.Blocklist))
	for _, id := range cfg.Blocklist {
		if id = observation.NormalizeBSSID(id); id != "" {
			blocked[id] = struct{}{}
		}
	}

	return &Registry{
		capacity:  cfg.Capacity,
		filterCfg: cfg.Filter,
		blocked:   blocked,
		records:   make(map[string]*record, cfg.Capacity),
		estimator: est,
		clock:     clock,
		log:       GetLogger(),
	}
}

// Upsert merges one observation. It creates a record and its filter for a
// new BSSID when there is room, updates an existing record, or rejects the
// observation without touching any record.
func (r *Registry) Upsert(obs observation.Observation) Result {
	obs = obs.Normalize()

	if obs.BSSID == "" || obs.RSSI < minRSSI || obs.RSSI >= maxRSSI {
		return RejectedInvalid
	}
	if _, ok := r.blocked[obs.BSSID]; ok {
		return RejectedBlocked
	}

	at := obs.SeenAt
	if at.IsZero() {
		at = r.clock.Now()
	}

	if rec, ok := r.records[obs.BSSID]; ok {
		r.update(rec, obs, at)
		return Updated
	}

	if len(r.records) >= r.capacity {
		return RejectedFull
	}

	rec := &record{filter: kalman.New(r.filterCfg)}
	smoothed := rec.filter.Update(float64(obs.RSSI))
	rec.dev = Device{
		BSSID:     obs.BSSID,
		SSID:      obs.SSID,
		Hidden:    obs.Hidden,
		RSSI:      obs.RSSI,
		Smoothed:  smoothed,
		Distance:  r.estimator.Estimate(smoothed, obs.Channel),
		Channel:   obs.Channel,
		FirstSeen: at,
		LastSeen:  at,
		Samples:   1,
		Active:    true,
	}
	r.records[obs.BSSID] = rec
	return Created
}

func (r *Registry) update(rec *record, obs observation.Observation, at time.Time) {
	smoothed := rec.filter.Update(float64(obs.RSSI))

	d := &rec.dev
	d.RSSI = obs.RSSI
	d.Smoothed = smoothed
	d.Channel = obs.Channel
	d.Distance = r.estimator.Estimate(smoothed, obs.Channel)
	d.Samples++
	// Results of one scan share a timestamp, and a late batch must not
	// move the record backwards.
	if at.After(d.LastSeen) {
		d.LastSeen = at
	}

	if d.Hidden && !obs.Hidden && !rec.revealed {
		d.SSID = obs.SSID
		d.Hidden = false
		rec.revealed = true
		r.log.Debug("hidden label revealed",
			logger.String("bssid", d.BSSID),
			logger.String("ssid", d.SSID))
	}
}

// EvictStale removes every record whose last observation is more than
// staleAfter before now, destroying its filter. It returns the number of
// records removed.
func (r *Registry) EvictStale(now time.Time, staleAfter time.Duration) int {
	evicted := 0
	for id, rec := range r.records {
		if now.Sub(rec.dev.LastSeen) <= staleAfter {
			continue
		}
		rec.dev.Active = false
		rec.filter = nil
		delete(r.records, id)
		evicted++
		r.log.Debug("device evicted",
			logger.String("bssid", id),
			logger.Time("last_seen", rec.dev.LastSeen),
			logger.Int("samples", rec.dev.Samples))
	}
	return evicted
}

// Snapshot returns copies of all active records, nearest first, ties broken
// by BSSID.
func (r *Registry) Snapshot() []Device {
	out := make([]Device, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.dev)
	}
	slices.SortFunc(out, func(a, b Device) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.BSSID, b.BSSID)
	})
	return out
}

// Get returns a copy of the record for bssid.
func (r *Registry) Get(bssid string) (Device, bool) {
	rec, ok := r.records[observation.NormalizeBSSID(bssid)]
	if !ok {
		return Device{}, false
	}
	return rec.dev, true
}

// CountActive returns the number of tracked devices.
func (r *Registry) CountActive() int {
	return len(r.records)
}

// Capacity returns the maximum number of tracked devices.
func (r *Registry) Capacity() int {
	return r.capacity
}

// IsBlocked reports whether bssid is on the self-identifier blocklist.
func (r *Registry) IsBlocked(bssid string) bool {
	_, ok := r.blocked[observation.NormalizeBSSID(bssid)]
	return ok
}
