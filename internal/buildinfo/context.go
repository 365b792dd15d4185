// Package buildinfo carries build-time metadata that is not part of the
// user configuration.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// Set at link time with -ldflags "-X".
var (
	version   = ""
	buildDate = ""
)

// Context is the build metadata passed to components at startup.
type Context struct {
	version   string
	buildDate string
}

// NewContext creates a Context from explicit values.
func NewContext(version, buildDate string) *Context {
	return &Context{version: version, buildDate: buildDate}
}

// Current returns the metadata linked into this binary.
func Current() *Context {
	return NewContext(version, buildDate)
}

func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// UserAgent returns the User-Agent sent with uplink requests.
func (c *Context) UserAgent() string {
	return fmt.Sprintf("proxnode/%s", c.Version())
}

// ValidationResult collects configuration problems found at startup.
type ValidationResult struct {
	// Warnings do not prevent startup.
	Warnings []string `json:"warnings,omitempty"`
	// Errors prevent startup.
	Errors []string `json:"errors,omitempty"`
	Valid  bool     `json:"valid"`
}

// NewValidationResult creates a result with Valid set.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

func (r *ValidationResult) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Valid = false
}

// HasIssues reports whether any warning or error was recorded.
func (r *ValidationResult) HasIssues() bool {
	return len(r.Warnings) > 0 || len(r.Errors) > 0
}
