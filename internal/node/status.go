package node

import (
	"slices"
	"time"

	"github.com/tphakala/proxnode/internal/registry"
)

// Status is an immutable view of the controller, published after every
// tick for readers on other goroutines.
type Status struct {
	AnchorID  string    `json:"anchor_id"`
	StartedAt time.Time `json:"started_at"`

	LastScan    time.Time `json:"last_scan"`
	LastReport  time.Time `json:"last_report"`
	LastCleanup time.Time `json:"last_cleanup"`

	Scans              uint64 `json:"scans"`
	ScanErrors         uint64 `json:"scan_errors"`
	ReportsSent        uint64 `json:"reports_sent"`
	ReportsFailed      uint64 `json:"reports_failed"`
	ReportsSkipped     uint64 `json:"reports_skipped"`
	ReportsRateLimited uint64 `json:"reports_rate_limited"`
	Evicted            uint64 `json:"evicted"`
	RejectedFull       uint64 `json:"rejected_full"`
	Sequence           uint64 `json:"sequence"`

	Attached        bool   `json:"attached"`
	LastUplinkError string `json:"last_uplink_error,omitempty"`

	Capacity int               `json:"capacity"`
	Devices  []registry.Device `json:"devices"`
}

// clone returns a copy that shares nothing with s.
func (s *Status) clone() *Status {
	c := *s
	c.Devices = slices.Clone(s.Devices)
	return &c
}
