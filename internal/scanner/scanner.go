// Package scanner produces raw observations from a radio backend: an ESP-AT
// radio module on a serial port, a recorded 802.11 capture, or a fixed
// simulated set.
package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tphakala/proxnode/internal/errors"
	"github.com/tphakala/proxnode/internal/logger"
	"github.com/tphakala/proxnode/internal/observation"
)

// Scanner performs one blocking scan.
type Scanner interface {
	// Scan returns the transmitters heard in one pass. An empty result is
	// not an error.
	Scan(ctx context.Context) ([]observation.Observation, error)
	// Name identifies the backend in logs and metrics.
	Name() string
	Close() error
}

const (
	TypeSerial    = "serial"
	TypePcap      = "pcap"
	TypeSimulated = "simulated"

	DefaultScanTimeout = 5 * time.Second
)

// Config selects and configures a backend.
type Config struct {
	Type    string
	Timeout time.Duration // upper bound of one serial scan

	Serial    SerialConfig
	Pcap      PcapConfig
	Simulated []observation.Observation
	Jitter    int // simulated RSSI jitter, ±dBm
}

// New builds the backend named by cfg.Type.
func New(cfg Config) (Scanner, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultScanTimeout
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case TypeSerial:
		return NewSerial(cfg.Serial, cfg.Timeout)
	case TypePcap:
		return NewPcap(cfg.Pcap)
	case TypeSimulated, "":
		return NewSimulated(cfg.Simulated, cfg.Jitter), nil
	default:
		return nil, errors.Newf("unknown scanner type %q", cfg.Type).
			Component("scanner").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// GetLogger returns the scanner module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("scanner")
}

// channelFromFrequency maps a centre frequency in MHz to a channel number,
// or 0 when the frequency is outside the 2.4/5/6 GHz plans.
func channelFromFrequency(mhz int) int {
	switch {
	case mhz == 2484:
		return 14
	case mhz >= 2412 && mhz <= 2472:
		return (mhz - 2407) / 5
	case mhz >= 5955 && mhz <= 7115:
		return (mhz - 5950) / 5
	case mhz >= 5000 && mhz <= 5900:
		return (mhz - 5000) / 5
	default:
		return 0
	}
}

func scanError(err error, backend string) error {
	return errors.New(fmt.Errorf("%s scan: %w", backend, err)).
		Component("scanner").
		Category(errors.CategoryScan).
		Context("backend", backend).
		Build()
}

func configError(err error, backend string) error {
	return errors.New(fmt.Errorf("%s scanner: %w", backend, err)).
		Component("scanner").
		Category(errors.CategoryConfiguration).
		Context("backend", backend).
		Build()
}
