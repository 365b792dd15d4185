// Package metrics provides the Prometheus collectors of the node.
package metrics

// Operations recorded through Recorder.
const (
	OpScan    = "scan"
	OpUpsert  = "upsert"
	OpEvict   = "evict"
	OpReport  = "report"
	OpUplink  = "uplink_send"
	OpEncode  = "encode"
	OpNotify  = "notify"
	OpCleanup = "cleanup"
)

// Statuses recorded through Recorder.
const (
	StatusSuccess     = "success"
	StatusError       = "error"
	StatusEmpty       = "empty"
	StatusSkipped     = "skipped"
	StatusRateLimited = "rate_limited"
)

const namespace = "proxnode"
