// Package node runs the scan cycle: scan, merge into the registry, report
// and evict stale devices, each on its own cadence.
package node

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/proxnode/internal/errors"
	"github.com/tphakala/proxnode/internal/logger"
	"github.com/tphakala/proxnode/internal/netcheck"
	"github.com/tphakala/proxnode/internal/observability/metrics"
	"github.com/tphakala/proxnode/internal/privacy"
	"github.com/tphakala/proxnode/internal/ranging"
	"github.com/tphakala/proxnode/internal/registry"
	"github.com/tphakala/proxnode/internal/report"
	"github.com/tphakala/proxnode/internal/scanner"
	"github.com/tphakala/proxnode/internal/timeutil"
	"github.com/tphakala/proxnode/internal/uplink"
)

// OutageNotifier is told about every uplink outcome so it can alert on
// sustained outages.
type OutageNotifier interface {
	UplinkFailed(err error)
	UplinkSucceeded()
}

// Deps are the controller's collaborators. Scanner and Uplink are
// required; the rest have defaults.
type Deps struct {
	Scanner    scanner.Scanner
	Uplink     uplink.Uplink
	Attachment netcheck.Attachment
	Clock      timeutil.Clock
	Metrics    metrics.NodeRecorder
	Outage     OutageNotifier
}

// Controller owns the registry and drives the scan cycle. Tick and Run must
// not be called concurrently; Status is safe from any goroutine.
type Controller struct {
	cfg      Config
	deps     Deps
	registry *registry.Registry
	log      logger.Logger

	lastScan    time.Time
	lastReport  time.Time
	lastCleanup time.Time
	seq         uint64

	// state is the writer's copy; status is what readers see.
	state  Status
	status atomic.Pointer[Status]

	fullWarned *cache.Cache
}

// New builds the calibration table, estimator and registry and returns an
// idle controller.
func New(deps Deps, cfg Config) (*Controller, error) {
	if deps.Scanner == nil || deps.Uplink == nil {
		return nil, errors.Newf("scanner and uplink are required").
			Component("node").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if deps.Attachment == nil {
		deps.Attachment = netcheck.Always{}
	}
	if deps.Clock == nil {
		deps.Clock = timeutil.RealClock{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NoOpRecorder{}
	}
	cfg = cfg.withDefaults()

	table, err := ranging.NewTable(cfg.Calibration, cfg.DefaultEntry)
	if err != nil {
		return nil, errors.New(fmt.Errorf("calibration table: %w", err)).
			Component("node").
			Category(errors.CategoryConfiguration).
			Build()
	}
	est := ranging.NewEstimator(table, cfg.Estimator)

	c := &Controller{
		cfg:        cfg,
		deps:       deps,
		registry:   registry.New(cfg.Registry, est, deps.Clock),
		log:        GetLogger().With(logger.String("anchor_id", cfg.AnchorID)),
		fullWarned: cache.New(fullWarningTTL, 0),
	}
	c.state = Status{
		AnchorID:  cfg.AnchorID,
		StartedAt: deps.Clock.Now(),
		Capacity:  c.registry.Capacity(),
		Devices:   []registry.Device{},
	}
	c.publish()
	return c, nil
}

// GetLogger returns the node module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("node")
}

// Run ticks until ctx is cancelled, sleeping PollInterval between ticks.
// Cancellation is a normal exit and returns nil.
func (c *Controller) Run(ctx context.Context) error {
	c.log.Info("scan cycle started",
		logger.String("scanner", c.deps.Scanner.Name()),
		logger.String("uplink", c.deps.Uplink.Name()),
		logger.Duration("scan_interval", c.cfg.ScanInterval),
		logger.Duration("report_interval", c.cfg.ReportInterval),
		logger.Int("capacity", c.registry.Capacity()))

	for ctx.Err() == nil {
		c.Tick(ctx)

		select {
		case <-ctx.Done():
		case <-c.deps.Clock.After(c.cfg.PollInterval):
		}
	}

	c.log.Info("scan cycle stopped",
		logger.Uint64("scans", c.state.Scans),
		logger.Uint64("reports_sent", c.state.ReportsSent))
	return nil
}

// Tick runs every cadence that is due at the current clock time.
func (c *Controller) Tick(ctx context.Context) {
	now := c.deps.Clock.Now()

	if due(c.lastScan, c.cfg.ScanInterval, now) {
		c.lastScan = now
		c.scan(ctx, now)
	}
	if due(c.lastReport, c.cfg.ReportInterval, now) {
		c.lastReport = now
		c.report(ctx, now)
	}
	if due(c.lastCleanup, c.cfg.CleanupInterval, now) {
		c.lastCleanup = now
		c.cleanup(now)
	}

	c.deps.Metrics.SetDevices(c.registry.CountActive(), c.registry.Capacity())
	c.state.Devices = c.registry.Snapshot()
	c.publish()
}

// due reports whether period has elapsed since last. A cadence that never
// ran is due.
func due(last time.Time, period time.Duration, now time.Time) bool {
	return last.IsZero() || now.Sub(last) >= period
}

func (c *Controller) scan(ctx context.Context, now time.Time) {
	start := c.deps.Clock.Now()
	results, err := c.deps.Scanner.Scan(ctx)
	c.deps.Metrics.RecordDuration(metrics.OpScan, c.deps.Clock.Since(start).Seconds())

	c.state.LastScan = now
	c.state.Scans++

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.state.ScanErrors++
		c.deps.Metrics.RecordOperation(metrics.OpScan, metrics.StatusError)
		c.deps.Metrics.RecordError(metrics.OpScan, string(errors.CategoryOf(err)))
		c.log.Warn("scan failed", logger.Error(err), logger.Int("partial_results", len(results)))
	} else if len(results) == 0 {
		c.deps.Metrics.RecordOperation(metrics.OpScan, metrics.StatusEmpty)
	} else {
		c.deps.Metrics.RecordOperation(metrics.OpScan, metrics.StatusSuccess)
	}

	for _, obs := range results {
		if obs.SeenAt.IsZero() {
			obs.SeenAt = now
		}
		res := c.registry.Upsert(obs)
		c.deps.Metrics.RecordOperation(metrics.OpUpsert, res.String())

		switch res {
		case registry.RejectedFull:
			c.state.RejectedFull++
			c.warnFull(obs.BSSID)
		case registry.Created:
			c.log.Debug("tracking new device",
				logger.String("bssid", obs.BSSID),
				logger.String("ssid", obs.SSID),
				logger.Int("rssi", obs.RSSI))
		}
	}
}

// warnFull logs a capacity warning at most once per BSSID per
// fullWarningTTL.
func (c *Controller) warnFull(bssid string) {
	if _, seen := c.fullWarned.Get(bssid); seen {
		return
	}
	c.fullWarned.SetDefault(bssid, struct{}{})
	c.log.Warn("device registry full, dropping new device",
		logger.String("bssid", bssid),
		logger.Int("capacity", c.registry.Capacity()),
		logger.Error(errors.ErrRegistryFull))
}

func (c *Controller) report(ctx context.Context, now time.Time) {
	attached := c.deps.Attachment.Attached(ctx)
	c.state.Attached = attached
	if !attached {
		c.state.ReportsSkipped++
		c.deps.Metrics.RecordOperation(metrics.OpReport, metrics.StatusSkipped)
		c.log.Debug("report skipped", logger.Error(errors.ErrTransportUnavailable))
		return
	}

	c.seq++
	r := report.Build(c.cfg.AnchorID, c.seq, now, c.registry.Snapshot())

	sendCtx, cancel := context.WithTimeout(ctx, c.cfg.UplinkTimeout)
	res, err := c.deps.Uplink.Send(sendCtx, r)
	cancel()

	c.state.Sequence = c.seq
	switch {
	case errors.Is(err, uplink.ErrRateLimited):
		c.state.ReportsRateLimited++
		c.deps.Metrics.RecordOperation(metrics.OpReport, metrics.StatusRateLimited)
		c.log.Debug("report dropped by send limiter", logger.Uint64("sequence", c.seq))
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		// endpoint URLs and hardware addresses stay out of status and alerts
		err = privacy.WrapError(err)
		c.state.ReportsFailed++
		c.state.LastUplinkError = err.Error()
		c.deps.Metrics.RecordOperation(metrics.OpReport, metrics.StatusError)
		c.deps.Metrics.RecordError(metrics.OpReport, string(errors.CategoryOf(err)))
		c.log.Warn("report delivery failed",
			logger.Uint64("sequence", c.seq),
			logger.Int("devices", len(r.Measurements)),
			logger.Error(err))
		if c.deps.Outage != nil {
			c.deps.Outage.UplinkFailed(err)
		}
	default:
		c.state.ReportsSent++
		c.state.LastReport = now
		c.state.LastUplinkError = ""
		c.deps.Metrics.RecordOperation(metrics.OpReport, metrics.StatusSuccess)
		c.deps.Metrics.RecordDuration(metrics.OpUplink, res.Latency.Seconds())
		if c.deps.Outage != nil {
			c.deps.Outage.UplinkSucceeded()
		}
	}
}

func (c *Controller) cleanup(now time.Time) {
	n := c.registry.EvictStale(now, c.cfg.StaleAfter)
	c.fullWarned.DeleteExpired()

	c.state.LastCleanup = now
	c.state.Evicted += uint64(n)
	c.deps.Metrics.RecordOperation(metrics.OpCleanup, metrics.StatusSuccess)
	for range n {
		c.deps.Metrics.RecordOperation(metrics.OpEvict, metrics.StatusSuccess)
	}
	if n > 0 {
		c.log.Info("evicted stale devices",
			logger.Int("evicted", n),
			logger.Int("remaining", c.registry.CountActive()))
	}
}

func (c *Controller) publish() {
	c.status.Store(c.state.clone())
}

// Status returns the state published after the last tick. The returned
// value must not be modified.
func (c *Controller) Status() *Status {
	return c.status.Load()
}

// Devices returns the device snapshot published after the last tick.
func (c *Controller) Devices() []registry.Device {
	return c.Status().Devices
}
