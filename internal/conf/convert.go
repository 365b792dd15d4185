package conf

import (
	"github.com/tphakala/proxnode/internal/kalman"
	"github.com/tphakala/proxnode/internal/node"
	"github.com/tphakala/proxnode/internal/observation"
	"github.com/tphakala/proxnode/internal/ranging"
	"github.com/tphakala/proxnode/internal/registry"
	"github.com/tphakala/proxnode/internal/scanner"
	"github.com/tphakala/proxnode/internal/uplink"
)

// ScannerConfig returns the scanner backend configuration.
func (s *Settings) ScannerConfig() scanner.Config {
	sim := make([]observation.Observation, 0, len(s.Scanner.Simulated.Devices))
	for _, d := range s.Scanner.Simulated.Devices {
		sim = append(sim, observation.Observation{
			BSSID:   d.BSSID,
			SSID:    d.SSID,
			RSSI:    d.RSSI,
			Channel: d.Channel,
		})
	}

	return scanner.Config{
		Type:    s.Scanner.Type,
		Timeout: s.Scanner.Timeout,
		Serial: scanner.SerialConfig{
			Device:   s.Scanner.Serial.Device,
			BaudRate: s.Scanner.Serial.BaudRate,
			DataBits: s.Scanner.Serial.DataBits,
			StopBits: s.Scanner.Serial.StopBits,
			Parity:   s.Scanner.Serial.Parity,
			Command:  s.Scanner.Serial.Command,
		},
		Pcap: scanner.PcapConfig{
			Path:   s.Scanner.Pcap.Path,
			Window: s.Scanner.Pcap.Window,
			Loop:   s.Scanner.Pcap.Loop,
		},
		Simulated: sim,
		Jitter:    s.Scanner.Simulated.Jitter,
	}
}

// NodeConfig returns the scan cycle configuration.
func (s *Settings) NodeConfig() node.Config {
	return node.Config{
		AnchorID:        s.Node.ID,
		ScanInterval:    s.Cycle.ScanInterval,
		ReportInterval:  s.Cycle.ReportInterval,
		CleanupInterval: s.Cycle.CleanupInterval,
		StaleAfter:      s.Cycle.StaleAfter,
		PollInterval:    s.Cycle.PollInterval,
		UplinkTimeout:   s.Uplink.Timeout,
		Registry: registry.Config{
			Capacity:  s.Registry.Capacity,
			Blocklist: s.Registry.Blocklist,
			Filter: kalman.Config{
				ProcessNoise:     s.Filter.ProcessNoise,
				MeasurementNoise: s.Filter.MeasurementNoise,
				Window:           s.Filter.Window,
			},
		},
		Calibration:  s.Ranging.Calibration,
		DefaultEntry: s.Ranging.Default,
		Estimator: ranging.EstimatorConfig{
			MinDistance:    s.Ranging.MinDistance,
			MaxDistance:    s.Ranging.MaxDistance,
			BandCorrection: s.Ranging.BandCorrection,
		},
	}
}

// UplinkConfig returns the report transport configuration.
func (s *Settings) UplinkConfig() uplink.Config {
	return uplink.Config{
		Type:        s.Uplink.Type,
		Format:      s.Uplink.Format,
		MinInterval: s.Uplink.MinInterval,
		HTTP: uplink.HTTPConfig{
			Endpoint: s.Uplink.HTTP.Endpoint,
			Timeout:  s.Uplink.Timeout,
			Token:    s.Uplink.HTTP.Token,
		},
		MQTT: uplink.MQTTConfig{
			Broker:   s.Uplink.MQTT.Broker,
			Topic:    s.Uplink.MQTT.Topic,
			Username: s.Uplink.MQTT.Username,
			Password: s.Uplink.MQTT.Password,
			QoS:      s.Uplink.MQTT.QoS,
			Retain:   s.Uplink.MQTT.Retain,
			Timeout:  s.Uplink.Timeout,
		},
	}
}
