package conf

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/tphakala/proxnode/internal/buildinfo"
	"github.com/tphakala/proxnode/internal/logger"
	"github.com/tphakala/proxnode/internal/ranging"
)

// ValidationError collects every configuration error found.
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings checks settings and logs warnings. It returns a
// ValidationError listing every error.
func ValidateSettings(settings *Settings) error {
	res := buildinfo.NewValidationResult()

	validateNodeSettings(&settings.Node, res)
	validateScannerSettings(&settings.Scanner, res)
	validateRangingSettings(&settings.Ranging, res)
	validateFilterSettings(&settings.Filter, res)
	validateCycleSettings(settings, res)
	validateUplinkSettings(&settings.Uplink, res)

	if settings.Registry.Capacity <= 0 {
		res.AddError("registry.capacity must be positive, got %d", settings.Registry.Capacity)
	}
	if settings.API.Enabled {
		if err := settings.API.Validate(); err != nil {
			res.AddError("api: %v", err)
		}
	}
	if settings.Notify.Enabled && len(settings.Notify.URLs) == 0 {
		res.AddError("notify.urls must list at least one service when notify is enabled")
	}
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		res.AddError("sentry.dsn is required when sentry is enabled")
	}

	for _, w := range res.Warnings {
		GetLogger().Warn("configuration warning", logger.String("warning", w))
	}
	if !res.Valid {
		return ValidationError{Errors: res.Errors}
	}
	return nil
}

func validateNodeSettings(s *NodeSettings, res *buildinfo.ValidationResult) {
	switch {
	case s.ID == "":
		res.AddError("node.id is required")
	case strings.ContainsAny(s.ID, " \t\r\n"):
		res.AddError("node.id must not contain whitespace: %q", s.ID)
	case len(s.ID) > 64:
		res.AddError("node.id is longer than 64 characters")
	}
}

func validateScannerSettings(s *ScannerSettings, res *buildinfo.ValidationResult) {
	switch s.Type {
	case "serial":
		if s.Serial.Device == "" {
			res.AddError("scanner.serial.device is required for the serial scanner")
		}
		if s.Serial.BaudRate <= 0 {
			res.AddError("scanner.serial.baudrate must be positive, got %d", s.Serial.BaudRate)
		}
		if p := strings.ToUpper(s.Serial.Parity); p != "" && !slices.Contains([]string{"N", "E", "O"}, p) {
			res.AddError("scanner.serial.parity must be N, E or O, got %q", s.Serial.Parity)
		}
	case "pcap":
		if s.Pcap.Path == "" {
			res.AddError("scanner.pcap.path is required for the pcap scanner")
		}
	case "simulated":
		if len(s.Simulated.Devices) == 0 {
			res.AddWarning("scanner.simulated.devices is empty, scans will return nothing")
		}
	default:
		res.AddError("scanner.type must be serial, pcap or simulated, got %q", s.Type)
	}
	if s.Timeout <= 0 {
		res.AddError("scanner.timeout must be positive")
	}
}

func validateRangingSettings(s *RangingSettings, res *buildinfo.ValidationResult) {
	if s.MinDistance <= 0 {
		res.AddError("ranging.mindistance must be positive, got %g", s.MinDistance)
	}
	if s.MaxDistance <= s.MinDistance {
		res.AddError("ranging.maxdistance (%g) must exceed ranging.mindistance (%g)", s.MaxDistance, s.MinDistance)
	}
	if _, err := ranging.NewTable(s.Calibration, s.Default); err != nil {
		res.AddError("ranging: %v", err)
	}
}

func validateFilterSettings(s *FilterSettings, res *buildinfo.ValidationResult) {
	if s.ProcessNoise <= 0 {
		res.AddError("filter.processnoise must be positive, got %g", s.ProcessNoise)
	}
	if s.MeasurementNoise <= 0 {
		res.AddError("filter.measurementnoise must be positive, got %g", s.MeasurementNoise)
	}
	if s.Window < 0 {
		res.AddError("filter.window must not be negative, got %d", s.Window)
	}
}

func validateCycleSettings(settings *Settings, res *buildinfo.ValidationResult) {
	c := &settings.Cycle
	for _, p := range []struct {
		key string
		d   time.Duration
	}{
		{"cycle.scaninterval", c.ScanInterval},
		{"cycle.cleanupinterval", c.CleanupInterval},
		{"cycle.staleafter", c.StaleAfter},
		{"cycle.pollinterval", c.PollInterval},
	} {
		if p.d <= 0 {
			res.AddError("%s must be positive, got %s", p.key, p.d)
		}
	}
	if c.ReportInterval < 0 {
		res.AddError("cycle.reportinterval must not be negative")
	}
	if c.StaleAfter > 0 && c.StaleAfter <= c.ScanInterval {
		res.AddWarning("cycle.staleafter (%s) is not longer than cycle.scaninterval (%s), devices will churn",
			c.StaleAfter, c.ScanInterval)
	}
	report := c.ReportInterval
	if report == 0 {
		report = c.ScanInterval
	}
	if mi := settings.Uplink.MinInterval; mi > 0 && report > 0 && report < mi {
		res.AddWarning("cycle.reportinterval (%s) is shorter than uplink.mininterval (%s), some reports will be dropped",
			report, mi)
	}
}

func validateUplinkSettings(s *UplinkSettings, res *buildinfo.ValidationResult) {
	if s.Format != "json" && s.Format != "cbor" {
		res.AddError("uplink.format must be json or cbor, got %q", s.Format)
	}
	if s.Timeout <= 0 {
		res.AddError("uplink.timeout must be positive")
	}

	switch s.Type {
	case "http":
		u, err := url.Parse(s.HTTP.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			res.AddError("uplink.http.endpoint must be an http(s) URL, got %q", logger.RedactSensitiveData(s.HTTP.Endpoint))
		} else if u.Scheme == "http" && s.HTTP.Token != "" {
			res.AddWarning("uplink.http.token is sent over plain http")
		}
	case "mqtt":
		if s.MQTT.Broker == "" {
			res.AddError("uplink.mqtt.broker is required for the mqtt uplink")
		}
		if s.MQTT.QoS > 2 {
			res.AddError("uplink.mqtt.qos must be 0, 1 or 2, got %d", s.MQTT.QoS)
		}
		if s.MQTT.Topic == "" {
			res.AddError("uplink.mqtt.topic is required")
		}
	default:
		res.AddError("uplink.type must be http or mqtt, got %q", s.Type)
	}
}
