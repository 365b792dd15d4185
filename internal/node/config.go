package node

import (
	"time"

	"github.com/tphakala/proxnode/internal/ranging"
	"github.com/tphakala/proxnode/internal/registry"
)

// Default cadences.
const (
	DefaultScanInterval    = 2 * time.Second
	DefaultCleanupInterval = 15 * time.Second
	DefaultStaleAfter      = 30 * time.Second
	DefaultPollInterval    = 100 * time.Millisecond
	DefaultUplinkTimeout   = 5 * time.Second

	// fullWarningTTL suppresses repeated capacity warnings per BSSID.
	fullWarningTTL = time.Minute
)

// Config holds the controller's cadences and the ranging pipeline setup.
type Config struct {
	AnchorID string

	ScanInterval    time.Duration
	ReportInterval  time.Duration // defaults to ScanInterval
	CleanupInterval time.Duration
	StaleAfter      time.Duration
	PollInterval    time.Duration
	UplinkTimeout   time.Duration

	Registry     registry.Config
	Calibration  []ranging.Entry
	DefaultEntry ranging.Entry
	Estimator    ranging.EstimatorConfig
}

func (c Config) withDefaults() Config {
	if c.ScanInterval <= 0 {
		c.ScanInterval = DefaultScanInterval
	}
	if c.ReportInterval <= 0 {
		c.ReportInterval = c.ScanInterval
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.UplinkTimeout <= 0 {
		c.UplinkTimeout = DefaultUplinkTimeout
	}
	return c
}
