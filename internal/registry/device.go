package registry

import "time"

// Device is a tracked transmitter as exported by Snapshot and Get.
type Device struct {
	BSSID     string    `json:"bssid"`
	SSID      string    `json:"ssid"`
	Hidden    bool      `json:"hidden"`
	RSSI      int       `json:"rssi"`          // last raw sample, dBm
	Smoothed  float64   `json:"smoothed_rssi"` // filtered RSSI, dBm
	Distance  float64   `json:"distance"`      // metres, clamped
	Channel   int       `json:"channel"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Samples   int       `json:"samples"`
	Active    bool      `json:"active"`
}

// Result is the outcome of Upsert.
type Result int

const (
	Created Result = iota
	Updated
	RejectedBlocked
	RejectedInvalid
	RejectedFull
)

var resultNames = [...]string{
	Created:         "created",
	Updated:         "updated",
	RejectedBlocked: "rejected_blocked",
	RejectedInvalid: "rejected_invalid",
	RejectedFull:    "rejected_full",
}

func (r Result) String() string {
	if r < 0 || int(r) >= len(resultNames) {
		return "unknown"
	}
	return resultNames[r]
}

// Accepted reports whether the observation changed the registry.
func (r Result) Accepted() bool {
	return r == Created || r == Updated
}

// Results lists every Result, for pre-registering metric labels.
func Results() []Result {
	return []Result{Created, Updated, RejectedBlocked, RejectedInvalid, RejectedFull}
}
