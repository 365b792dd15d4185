package conf

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/proxnode/internal/ranging"
)

func validSettings(t *testing.T) *Settings {
	t.Helper()
	s, err := loadFresh(t, writeConfig(t, defaultConfigText(t)))
	require.NoError(t, err)
	return s
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"empty node id", func(s *Settings) { s.Node.ID = "" }, "node.id is required"},
		{"node id with space", func(s *Settings) { s.Node.ID = "anchor 1" }, "whitespace"},
		{"unknown scanner", func(s *Settings) { s.Scanner.Type = "bluetooth" }, "scanner.type"},
		{"pcap without path", func(s *Settings) { s.Scanner.Type = "pcap" }, "scanner.pcap.path"},
		{"bad parity", func(s *Settings) { s.Scanner.Serial.Parity = "X" }, "parity"},
		{"simulated without devices", func(s *Settings) { s.Scanner.Type = "simulated" }, ""},
		{"max below min", func(s *Settings) { s.Ranging.MaxDistance = 0.05 }, "ranging.maxdistance"},
		{"zero exponent", func(s *Settings) {
			s.Ranging.Calibration = []ranging.Entry{{Channel: 1, N: 0, A: -45}}
		}, "path-loss exponent"},
		{"duplicate channel", func(s *Settings) {
			s.Ranging.Calibration = []ranging.Entry{{Channel: 1, N: 2, A: -45}, {Channel: 1, N: 3, A: -40}}
		}, "ranging"},
		{"zero process noise", func(s *Settings) { s.Filter.ProcessNoise = 0 }, "filter.processnoise"},
		{"zero capacity", func(s *Settings) { s.Registry.Capacity = 0 }, "registry.capacity"},
		{"zero scan interval", func(s *Settings) { s.Cycle.ScanInterval = 0 }, "cycle.scaninterval"},
		{"report below min interval", func(s *Settings) {
			s.Cycle.ReportInterval = 500 * time.Millisecond
		}, ""},
		{"bad format", func(s *Settings) { s.Uplink.Format = "xml" }, "uplink.format"},
		{"ftp endpoint", func(s *Settings) { s.Uplink.HTTP.Endpoint = "ftp://agg/api" }, "uplink.http.endpoint"},
		{"mqtt without broker", func(s *Settings) { s.Uplink.Type = "mqtt" }, "uplink.mqtt.broker"},
		{"mqtt qos 3", func(s *Settings) {
			s.Uplink.Type = "mqtt"
			s.Uplink.MQTT.Broker = "tcp://broker:1883"
			s.Uplink.MQTT.QoS = 3
		}, "uplink.mqtt.qos"},
		{"bad api port", func(s *Settings) { s.API.Port = "99999" }, "api"},
		{"api disabled ignores port", func(s *Settings) {
			s.API.Enabled = false
			s.API.Port = "nope"
		}, ""},
		{"notify without urls", func(s *Settings) { s.Notify.Enabled = true }, "notify.urls"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "sentry.dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings(t)
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
	viper.Reset()
}
