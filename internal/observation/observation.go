// Package observation defines a single scan result as produced by a scanner
// backend and consumed by the device registry.
package observation

import (
	"fmt"
	"strings"
	"time"
)

// HiddenLabel is the placeholder label of a transmitter that does not
// broadcast its network name.
const HiddenLabel = "<hidden>"

// Observation is one transmitter seen in one scan.
type Observation struct {
	BSSID   string    // hardware address, the tracking key
	SSID    string    // network name, HiddenLabel when not broadcast
	Hidden  bool      // SSID is the placeholder
	RSSI    int       // received signal strength, dBm
	Channel int       // radio channel number
	SeenAt  time.Time // zero means "stamp on arrival"
}

// Normalize returns a copy with a canonical BSSID and the hidden-label
// placeholder applied to an empty SSID.
func (o Observation) Normalize() Observation {
	o.BSSID = NormalizeBSSID(o.BSSID)
	o.SSID = strings.TrimSpace(o.SSID)
	if o.SSID == "" || o.SSID == HiddenLabel {
		o.SSID = HiddenLabel
		o.Hidden = true
	}
	return o
}

func (o Observation) String() string {
	return fmt.Sprintf("%s %q ch=%d rssi=%d", o.BSSID, o.SSID, o.Channel, o.RSSI)
}

// NormalizeBSSID upper-cases an address and converts '-' separators to ':'.
// Anything that is not a six-octet address is returned trimmed and upper-cased.
func NormalizeBSSID(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", ":")
	return s
}
