// Package notification alerts operators when the uplink has been failing
// for several consecutive reports, and again when it recovers.
package notification

import (
	"fmt"
	"sync"
	"time"

	"github.com/tphakala/proxnode/internal/errors"
	"github.com/tphakala/proxnode/internal/logger"
	"github.com/tphakala/proxnode/internal/observability/metrics"
	"github.com/tphakala/proxnode/internal/timeutil"
)

// DefaultThreshold is the number of consecutive failed reports that counts
// as an outage.
const DefaultThreshold = 5

// Config configures outage alerts.
type Config struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	URLs      []string      `yaml:"urls" mapstructure:"urls"`
	Threshold int           `yaml:"threshold" mapstructure:"threshold"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// OutageNotifier counts consecutive uplink failures. Crossing the threshold
// sends one alert; the next success sends one recovery message. Messages
// go out on their own goroutine so the scan cycle never waits on them.
type OutageNotifier struct {
	anchorID  string
	threshold int
	sender    Sender
	clock     timeutil.Clock
	metrics   metrics.Recorder
	log       logger.Logger

	mu       sync.Mutex
	failures int
	since    time.Time
	alerted  bool
	closed   bool
	wg       sync.WaitGroup
}

// New builds a shoutrrr-backed notifier from cfg.
func New(anchorID string, cfg Config, clock timeutil.Clock, rec metrics.Recorder) (*OutageNotifier, error) {
	sender, err := NewShoutrrrSender(cfg.URLs, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return NewOutageNotifier(anchorID, cfg.Threshold, sender, clock, rec), nil
}

// NewOutageNotifier creates a notifier around sender. A non-positive
// threshold selects DefaultThreshold.
func NewOutageNotifier(anchorID string, threshold int, sender Sender, clock timeutil.Clock, rec metrics.Recorder) *OutageNotifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if rec == nil {
		rec = metrics.NoOpRecorder{}
	}
	return &OutageNotifier{
		anchorID:  anchorID,
		threshold: threshold,
		sender:    sender,
		clock:     clock,
		metrics:   rec,
		log:       GetLogger(),
	}
}

// UplinkFailed records one failed report.
func (n *OutageNotifier) UplinkFailed(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.failures++
	if n.failures == 1 {
		n.since = n.clock.Now()
	}
	if n.alerted || n.failures < n.threshold {
		return
	}
	n.alerted = true

	reason := "unknown error"
	if err != nil {
		reason = logger.RedactSensitiveData(err.Error())
	}
	n.dispatch(
		fmt.Sprintf("%s: uplink down", n.anchorID),
		fmt.Sprintf("Anchor %s has failed %d consecutive reports since %s. Last error: %s",
			n.anchorID, n.failures, n.since.UTC().Format(time.RFC3339), reason))
}

// UplinkSucceeded records one delivered report.
func (n *OutageNotifier) UplinkSucceeded() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.alerted {
		down := n.clock.Since(n.since).Round(time.Second)
		n.dispatch(
			fmt.Sprintf("%s: uplink recovered", n.anchorID),
			fmt.Sprintf("Anchor %s is delivering reports again after %s and %d failed reports.",
				n.anchorID, down, n.failures))
	}
	n.failures = 0
	n.alerted = false
}

// Failures returns the current run of consecutive failures.
func (n *OutageNotifier) Failures() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.failures
}

// dispatch must be called with mu held.
func (n *OutageNotifier) dispatch(title, message string) {
	if n.closed {
		return
	}
	n.wg.Go(func() {
		if err := n.sender.Send(title, message); err != nil {
			n.metrics.RecordOperation(metrics.OpNotify, metrics.StatusError)
			n.metrics.RecordError(metrics.OpNotify, string(errors.CategoryOf(err)))
			n.log.Warn("outage notification failed", logger.String("title", title), logger.Error(err))
			return
		}
		n.metrics.RecordOperation(metrics.OpNotify, metrics.StatusSuccess)
		n.log.Info("outage notification sent", logger.String("title", title))
	})
}

// Close stops accepting messages and waits for those in flight.
func (n *OutageNotifier) Close() error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	n.wg.Wait()
	return nil
}
