package errors

import (
	"fmt"
	"regexp"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter receives errors as they are built.
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

type reporterHolder struct {
	reporter TelemetryReporter
}

var telemetryReporter atomic.Pointer[reporterHolder]

// SetTelemetryReporter installs r. Passing nil disables reporting.
func SetTelemetryReporter(r TelemetryReporter) {
	if r == nil {
		telemetryReporter.Store(nil)
		return
	}
	telemetryReporter.Store(&reporterHolder{reporter: r})
}

func reportToTelemetry(ee *EnhancedError) {
	h := telemetryReporter.Load()
	if h == nil || !h.reporter.IsEnabled() {
		return
	}
	// Per-cycle validation noise is not worth an event.
	if ee.Priority == PriorityLow {
		return
	}
	h.reporter.ReportError(ee)
}

// SentryReporter forwards errors to Sentry with credentials scrubbed.
type SentryReporter struct {
	enabled bool
}

func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	message := basicURLScrub(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.Component)
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("priority", ee.Priority)
		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = basicURLScrub(s)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}
		scope.SetLevel(sentryLevel(ee.Priority))
		scope.SetFingerprint([]string{ee.Component, string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = message
		event.Level = sentryLevel(ee.Priority)
		event.Exception = []sentry.Exception{{Type: string(ee.Category), Value: message}}
		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

func sentryLevel(priority string) sentry.Level {
	switch priority {
	case PriorityCritical:
		return sentry.LevelFatal
	case PriorityHigh:
		return sentry.LevelError
	default:
		return sentry.LevelWarning
	}
}

var (
	urlQueryPattern    = regexp.MustCompile(`(https?://[^\s?]+)\?[^\s]*`)
	urlUserinfoPattern = regexp.MustCompile(`([a-z][a-z0-9+.\-]*://)[^@/\s]+@`)
)

// basicURLScrub drops query strings and userinfo from URLs in s.
func basicURLScrub(s string) string {
	s = urlUserinfoPattern.ReplaceAllString(s, "${1}[REDACTED]@")
	return urlQueryPattern.ReplaceAllString(s, "${1}?[REDACTED]")
}
