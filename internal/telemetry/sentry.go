// Package telemetry initializes opt-in error reporting to Sentry and routes
// enhanced errors to it.
package telemetry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/proxnode/internal/errors"
	"github.com/tphakala/proxnode/internal/logger"
	"github.com/tphakala/proxnode/internal/privacy"
)

// FlushTimeout bounds how long Flush waits for queued events.
const FlushTimeout = 2 * time.Second

// Config holds the Sentry settings.
type Config struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	DSN         string  `yaml:"dsn" mapstructure:"dsn"`
	Environment string  `yaml:"environment" mapstructure:"environment"`
	SampleRate  float64 `yaml:"samplerate" mapstructure:"samplerate"`
	Debug       bool    `yaml:"debug" mapstructure:"debug"`
}

var initialized atomic.Bool

// Init configures the Sentry SDK and installs the error reporter. It does
// nothing when telemetry is disabled. transport may be nil.
func Init(cfg Config, version, anchorID string, transport sentry.Transport) error {
	if !cfg.Enabled {
		errors.SetTelemetryReporter(nil)
		return nil
	}
	if cfg.DSN == "" {
		return errors.Newf("sentry DSN is required when telemetry is enabled").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.SampleRate <= 0 || cfg.SampleRate > 1 {
		cfg.SampleRate = 1.0
	}
	if cfg.Environment == "" {
		cfg.Environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		SampleRate:       cfg.SampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: false,
		Environment:      cfg.Environment,
		ServerName:       "",
		Release:          fmt.Sprintf("proxnode@%s", version),
		Transport:        transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("anchor_id", anchorID)
	})
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized.Store(true)

	GetLogger().Info("error telemetry enabled",
		logger.String("environment", cfg.Environment),
		logger.Float64("sample_rate", cfg.SampleRate))
	return nil
}

// Flush waits up to FlushTimeout for queued events and detaches the
// reporter.
func Flush() {
	if !initialized.CompareAndSwap(true, false) {
		return
	}
	errors.SetTelemetryReporter(nil)
	if !sentry.Flush(FlushTimeout) {
		GetLogger().Warn("telemetry flush timed out", logger.Duration("timeout", FlushTimeout))
	}
}

// applyPrivacyFilters drops host identity and free-form extras, and scrubs
// the message and exception values.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}
	return event
}

// GetLogger returns the telemetry module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}
