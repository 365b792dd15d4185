package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig registers a default for every key, which also makes
// every key overridable from the environment.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("node.id", "")
	viper.SetDefault("node.name", "")

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.console.json", false)
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/proxnode.log")
	viper.SetDefault("logging.file_output.level", "info")

	viper.SetDefault("scanner.type", "serial")
	viper.SetDefault("scanner.timeout", 5*time.Second)
	viper.SetDefault("scanner.serial.device", "/dev/ttyUSB0")
	viper.SetDefault("scanner.serial.baudrate", 115200)
	viper.SetDefault("scanner.serial.databits", 8)
	viper.SetDefault("scanner.serial.stopbits", 1)
	viper.SetDefault("scanner.serial.parity", "N")
	viper.SetDefault("scanner.serial.command", "AT+CWLAP")
	viper.SetDefault("scanner.pcap.path", "")
	viper.SetDefault("scanner.pcap.window", 2*time.Second)
	viper.SetDefault("scanner.pcap.loop", false)
	viper.SetDefault("scanner.simulated.jitter", 3)

	viper.SetDefault("ranging.mindistance", 0.1)
	viper.SetDefault("ranging.maxdistance", 20.0)
	viper.SetDefault("ranging.bandcorrection", true)
	viper.SetDefault("ranging.default.n", 2.5)
	viper.SetDefault("ranging.default.a", -45.0)

	viper.SetDefault("filter.processnoise", 0.1)
	viper.SetDefault("filter.measurementnoise", 4.0)
	viper.SetDefault("filter.window", 0)

	viper.SetDefault("registry.capacity", 10)

	viper.SetDefault("cycle.scaninterval", 2*time.Second)
	viper.SetDefault("cycle.reportinterval", 2*time.Second)
	viper.SetDefault("cycle.cleanupinterval", 15*time.Second)
	viper.SetDefault("cycle.staleafter", 30*time.Second)
	viper.SetDefault("cycle.pollinterval", 100*time.Millisecond)

	viper.SetDefault("uplink.type", "http")
	viper.SetDefault("uplink.format", "json")
	viper.SetDefault("uplink.timeout", 5*time.Second)
	viper.SetDefault("uplink.mininterval", time.Second)
	viper.SetDefault("uplink.http.endpoint", "http://localhost:5000/api/anchor_data")
	viper.SetDefault("uplink.http.token", "")
	viper.SetDefault("uplink.http.tokenfile", "")
	viper.SetDefault("uplink.mqtt.broker", "")
	viper.SetDefault("uplink.mqtt.topic", "proxnode/anchors")
	viper.SetDefault("uplink.mqtt.username", "")
	viper.SetDefault("uplink.mqtt.password", "")
	viper.SetDefault("uplink.mqtt.passwordfile", "")
	viper.SetDefault("uplink.mqtt.qos", 1)
	viper.SetDefault("uplink.mqtt.retain", false)

	viper.SetDefault("network.check", true)
	viper.SetDefault("network.interface", "")

	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.host", "")
	viper.SetDefault("api.port", "8080")
	viper.SetDefault("api.allowedorigins", []string{"*"})
	viper.SetDefault("api.metrics", true)
	viper.SetDefault("api.readtimeout", 10*time.Second)
	viper.SetDefault("api.writetimeout", 10*time.Second)
	viper.SetDefault("api.idletimeout", 60*time.Second)
	viper.SetDefault("api.shutdowntimeout", 5*time.Second)

	viper.SetDefault("notify.enabled", false)
	viper.SetDefault("notify.threshold", 5)
	viper.SetDefault("notify.timeout", 10*time.Second)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.samplerate", 1.0)
	viper.SetDefault("sentry.debug", false)
}
