// Package errors provides categorized errors with optional telemetry reporting.
//
// Errors are built with a fluent builder:
//
//	err := errors.New(sendErr).
//	    Component("uplink").
//	    Category(errors.CategoryUplink).
//	    Context("endpoint", url).
//	    Build()
//
// Sentinel values for the node's failure classes (ErrTransportUnavailable,
// ErrUplinkFailure, ErrRegistryFull, ErrInvalidObservation) match with Is
// through any amount of wrapping.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sync"
	"time"
)

// ErrorCategory groups errors for logging, metrics and telemetry.
type ErrorCategory string

const (
	CategoryGeneric       ErrorCategory = "generic"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryNetwork       ErrorCategory = "network"
	CategoryHTTP          ErrorCategory = "http-request"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryFileParsing   ErrorCategory = "file-parsing"
	CategoryLimit         ErrorCategory = "limit"
	CategoryState         ErrorCategory = "state"

	CategoryScan      ErrorCategory = "scan"
	CategorySerial    ErrorCategory = "serial-port"
	CategoryRegistry  ErrorCategory = "registry"
	CategoryTransport ErrorCategory = "transport"
	CategoryUplink    ErrorCategory = "uplink"
	CategoryEncoding  ErrorCategory = "encoding"
	CategoryMQTT      ErrorCategory = "mqtt"
	CategoryNotify    ErrorCategory = "notification"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ComponentUnknown is used when no component was set.
const ComponentUnknown = "unknown"

// Failure classes of the node. None of them stop the scan cycle.
var (
	// ErrTransportUnavailable means the link is down; the report is skipped.
	ErrTransportUnavailable = stderrors.New("transport not attached")
	// ErrUplinkFailure covers timeouts and non-success aggregator responses.
	ErrUplinkFailure = stderrors.New("uplink delivery failed")
	// ErrRegistryFull means a new identifier was dropped at capacity.
	ErrRegistryFull = stderrors.New("device registry full")
	// ErrInvalidObservation covers empty and blocklisted identifiers.
	ErrInvalidObservation = stderrors.New("invalid observation")
)

// EnhancedError wraps an error with category, component and context.
type EnhancedError struct {
	Err       error
	Component string
	Category  ErrorCategory
	Priority  string
	Context   map[string]any
	Timestamp time.Time

	mu       sync.Mutex
	reported bool
}

func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches another EnhancedError by category, otherwise defers to the
// wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetContext returns a copy of the context map.
func (ee *EnhancedError) GetContext() map[string]any {
	return maps.Clone(ee.Context)
}

// MarkReported records that telemetry has been sent for this error.
func (ee *EnhancedError) MarkReported() {
	ee.mu.Lock()
	ee.reported = true
	ee.mu.Unlock()
}

func (ee *EnhancedError) IsReported() bool {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	return ee.reported
}

// ErrorBuilder assembles an EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	priority  string
	context   map[string]any
}

// New starts a builder wrapping err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts a builder with a formatted message. %w verbs wrap as usual.
func Newf(format string, args ...any) *ErrorBuilder {
	return &ErrorBuilder{err: fmt.Errorf(format, args...)}
}

func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

func (eb *ErrorBuilder) Priority(priority string) *ErrorBuilder {
	eb.priority = priority
	return eb
}

func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// NetworkContext records the remote target and the timeout in effect.
func (eb *ErrorBuilder) NetworkContext(url string, timeout time.Duration) *ErrorBuilder {
	return eb.Context("url", url).Context("timeout_ms", timeout.Milliseconds())
}

// Timing records how long an operation ran before failing.
func (eb *ErrorBuilder) Timing(operation string, duration time.Duration) *ErrorBuilder {
	return eb.Context("operation", operation).Context("duration_ms", duration.Milliseconds())
}

// Build finalizes the error and hands it to the telemetry reporter, if one
// is installed.
func (eb *ErrorBuilder) Build() *EnhancedError {
	err := eb.err
	if err == nil {
		err = stderrors.New("unknown error")
	}

	ee := &EnhancedError{
		Err:       err,
		Component: eb.component,
		Category:  eb.category,
		Priority:  eb.priority,
		Context:   eb.context,
		Timestamp: time.Now(),
	}
	if ee.Component == "" {
		ee.Component = ComponentUnknown
	}
	if ee.Category == "" {
		ee.Category = detectCategory(err)
	}
	if ee.Priority == "" {
		ee.Priority = defaultPriority(ee.Category)
	}

	reportToTelemetry(ee)
	return ee
}

// detectCategory maps the node's sentinels to their categories.
func detectCategory(err error) ErrorCategory {
	switch {
	case stderrors.Is(err, ErrTransportUnavailable):
		return CategoryTransport
	case stderrors.Is(err, ErrUplinkFailure):
		return CategoryUplink
	case stderrors.Is(err, ErrRegistryFull):
		return CategoryRegistry
	case stderrors.Is(err, ErrInvalidObservation):
		return CategoryValidation
	default:
		return CategoryGeneric
	}
}

func defaultPriority(category ErrorCategory) string {
	switch category {
	case CategoryConfiguration:
		return PriorityHigh
	case CategoryUplink, CategoryScan, CategorySerial, CategoryMQTT:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// NewStd creates a plain error, same as the standard library's errors.New.
func NewStd(text string) error {
	return stderrors.New(text)
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}

func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// IsCategory reports whether err wraps an EnhancedError of category.
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	if stderrors.As(err, &ee) {
		return ee.Category == category
	}
	return false
}

// CategoryOf returns the category of the outermost EnhancedError in err,
// or CategoryGeneric.
func CategoryOf(err error) ErrorCategory {
	var ee *EnhancedError
	if stderrors.As(err, &ee) {
		return ee.Category
	}
	return detectCategory(err)
}
