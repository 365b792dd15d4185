// Package conf loads, validates and saves the node configuration.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/proxnode/internal/api"
	"github.com/tphakala/proxnode/internal/logger"
	"github.com/tphakala/proxnode/internal/notification"
	"github.com/tphakala/proxnode/internal/ranging"
	"github.com/tphakala/proxnode/internal/telemetry"
)

//go:embed config.yaml
var configFiles embed.FS

// EnvPrefix prefixes environment overrides, e.g. PROXNODE_UPLINK_HTTP_ENDPOINT.
const EnvPrefix = "PROXNODE"

// Settings is the complete node configuration.
type Settings struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Node     NodeSettings         `yaml:"node" mapstructure:"node"`
	Logging  logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Scanner  ScannerSettings      `yaml:"scanner" mapstructure:"scanner"`
	Ranging  RangingSettings      `yaml:"ranging" mapstructure:"ranging"`
	Filter   FilterSettings       `yaml:"filter" mapstructure:"filter"`
	Registry RegistrySettings     `yaml:"registry" mapstructure:"registry"`
	Cycle    CycleSettings        `yaml:"cycle" mapstructure:"cycle"`
	Uplink   UplinkSettings       `yaml:"uplink" mapstructure:"uplink"`
	Network  NetworkSettings      `yaml:"network" mapstructure:"network"`
	API      api.Config           `yaml:"api" mapstructure:"api"`
	Notify   notification.Config  `yaml:"notify" mapstructure:"notify"`
	Sentry   telemetry.Config     `yaml:"sentry" mapstructure:"sentry"`
}

// NodeSettings identify this anchor to the aggregator.
type NodeSettings struct {
	ID   string `yaml:"id" mapstructure:"id"`     // anchor_id in every report
	Name string `yaml:"name" mapstructure:"name"` // free-form description
}

// ScannerSettings select and configure the scan backend.
type ScannerSettings struct {
	Type      string            `yaml:"type" mapstructure:"type"` // serial, pcap or simulated
	Timeout   time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	Serial    SerialSettings    `yaml:"serial" mapstructure:"serial"`
	Pcap      PcapSettings      `yaml:"pcap" mapstructure:"pcap"`
	Simulated SimulatedSettings `yaml:"simulated" mapstructure:"simulated"`
}

// SerialSettings configure an ESP-AT radio module on a serial port.
type SerialSettings struct {
	Device   string `yaml:"device" mapstructure:"device"`
	BaudRate int    `yaml:"baudrate" mapstructure:"baudrate"`
	DataBits int    `yaml:"databits" mapstructure:"databits"`
	StopBits int    `yaml:"stopbits" mapstructure:"stopbits"`
	Parity   string `yaml:"parity" mapstructure:"parity"`
	Command  string `yaml:"command" mapstructure:"command"`
}

// PcapSettings configure capture file replay.
type PcapSettings struct {
	Path   string        `yaml:"path" mapstructure:"path"`
	Window time.Duration `yaml:"window" mapstructure:"window"`
	Loop   bool          `yaml:"loop" mapstructure:"loop"`
}

// SimulatedSettings configure the synthetic scanner.
type SimulatedSettings struct {
	Jitter  int               `yaml:"jitter" mapstructure:"jitter"`
	Devices []SimulatedDevice `yaml:"devices" mapstructure:"devices"`
}

// SimulatedDevice is one synthetic transmitter.
type SimulatedDevice struct {
	BSSID   string `yaml:"bssid" mapstructure:"bssid"`
	SSID    string `yaml:"ssid" mapstructure:"ssid"`
	RSSI    int    `yaml:"rssi" mapstructure:"rssi"`
	Channel int    `yaml:"channel" mapstructure:"channel"`
}

// RangingSettings hold the path-loss calibration.
type RangingSettings struct {
	MinDistance    float64         `yaml:"mindistance" mapstructure:"mindistance"`
	MaxDistance    float64         `yaml:"maxdistance" mapstructure:"maxdistance"`
	BandCorrection bool            `yaml:"bandcorrection" mapstructure:"bandcorrection"`
	Default        ranging.Entry   `yaml:"default" mapstructure:"default"`
	Calibration    []ranging.Entry `yaml:"calibration" mapstructure:"calibration"`
}

// FilterSettings tune the per-device signal filter.
type FilterSettings struct {
	ProcessNoise     float64 `yaml:"processnoise" mapstructure:"processnoise"`
	MeasurementNoise float64 `yaml:"measurementnoise" mapstructure:"measurementnoise"`
	Window           int     `yaml:"window" mapstructure:"window"` // moving-average pre-smoothing, 0 disables
}

// RegistrySettings bound the tracked device set.
type RegistrySettings struct {
	Capacity  int      `yaml:"capacity" mapstructure:"capacity"`
	Blocklist []string `yaml:"blocklist" mapstructure:"blocklist"`
}

// CycleSettings are the scan cycle cadences.
type CycleSettings struct {
	ScanInterval    time.Duration `yaml:"scaninterval" mapstructure:"scaninterval"`
	ReportInterval  time.Duration `yaml:"reportinterval" mapstructure:"reportinterval"`
	CleanupInterval time.Duration `yaml:"cleanupinterval" mapstructure:"cleanupinterval"`
	StaleAfter      time.Duration `yaml:"staleafter" mapstructure:"staleafter"`
	PollInterval    time.Duration `yaml:"pollinterval" mapstructure:"pollinterval"`
}

// UplinkSettings select and configure report delivery.
type UplinkSettings struct {
	Type        string        `yaml:"type" mapstructure:"type"`     // http or mqtt
	Format      string        `yaml:"format" mapstructure:"format"` // json or cbor
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MinInterval time.Duration `yaml:"mininterval" mapstructure:"mininterval"`
	HTTP        HTTPSettings  `yaml:"http" mapstructure:"http"`
	MQTT        MQTTSettings  `yaml:"mqtt" mapstructure:"mqtt"`
}

// HTTPSettings configure the aggregator endpoint.
type HTTPSettings struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	Token     string `yaml:"token" mapstructure:"token"`         // may reference ${ENV_VAR}
	TokenFile string `yaml:"tokenfile" mapstructure:"tokenfile"` // overrides Token
}

// MQTTSettings configure the broker uplink.
type MQTTSettings struct {
	Broker   string `yaml:"broker" mapstructure:"broker"`
	Topic    string `yaml:"topic" mapstructure:"topic"`
	Username     string `yaml:"username" mapstructure:"username"`
	Password     string `yaml:"password" mapstructure:"password"`         // may reference ${ENV_VAR}
	PasswordFile string `yaml:"passwordfile" mapstructure:"passwordfile"` // overrides Password
	QoS          byte   `yaml:"qos" mapstructure:"qos"`
	Retain       bool   `yaml:"retain" mapstructure:"retain"`
}

// NetworkSettings configure the link attachment check.
type NetworkSettings struct {
	Check     bool   `yaml:"check" mapstructure:"check"`         // skip reports while the interface is down
	Interface string `yaml:"interface" mapstructure:"interface"` // empty means any non-loopback interface
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration. An empty configFile searches the default
// paths and creates the default config on first run.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}

	if settings.Node.ID == "" {
		settings.Node.ID = GenerateNodeID()
		GetLogger().Warn("node id not configured, using a generated id for this run",
			logger.String("id", settings.Node.ID))
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settings, nil
}

// initViper sets defaults and environment overrides, then reads the config
// file.
func initViper(configFile string) error {
	viper.SetConfigType("yaml")
	setDefaultConfig()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	for _, path := range GetDefaultConfigPaths() {
		viper.AddConfigPath(path)
	}

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// createDefaultConfig writes the embedded default config, with a freshly
// generated node id, to the first user config path.
func createDefaultConfig() error {
	configPath := filepath.Join(GetDefaultConfigPaths()[1], "config.yaml")

	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}
	defaultConfig = strings.Replace(defaultConfig, `id: ""`, fmt.Sprintf("id: %q", GenerateNodeID()), 1)

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig returns the embedded default config.yaml.
func getDefaultConfig() (string, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return "", fmt.Errorf("error reading embedded config: %w", err)
	}
	return string(data), nil
}

// GetSettings returns the settings from the last successful Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath through a temporary file and
// a rename. Comments in the existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}
	return nil
}
