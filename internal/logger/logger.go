// Package logger provides module-aware structured logging built on log/slog.
//
// Every package of the node obtains a scoped logger from the process-wide
// CentralLogger:
//
//	log := logger.Global().Module("registry")
//	log.Info("device created",
//	    logger.String("bssid", dev.BSSID),
//	    logger.Float64("distance", dev.Distance))
//
// Module loggers nest ("uplink.http"), accumulate fields with With, and pick
// up trace identifiers from a context via WithContext.
//
// Configuration mirrors the "logging" section of config.yaml:
//
//	logging:
//	  default_level: info
//	  timezone: Local
//	  console:
//	    enabled: true
//	    level: info
//	  file_output:
//	    enabled: false
//	    path: logs/proxnode.log
//	    level: debug
//	  module_levels:
//	    scanner: debug
package logger

import (
	"context"
	"strings"
	"time"
	"unique"
)

// Logger is the logging interface injected into every component.
type Logger interface {
	// Module returns a child logger scoped to name ("parent.name").
	Module(name string) Logger

	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a logger that adds fields to every record.
	With(fields ...Field) Logger

	// WithContext returns a logger carrying the context's trace id, if any.
	WithContext(ctx context.Context) Logger

	// Log writes a record at an explicit level.
	Log(level LogLevel, msg string, fields ...Field)

	// Flush writes out buffered records.
	Flush() error
}

// LogLevel names a log level as used in configuration.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Field is a single structured key/value pair.
type Field struct {
	Key   string
	Value any
}

// Field keys are interned.
func internKey(key string) string {
	return unique.Make(key).Value()
}

func String(key, value string) Field {
	return Field{Key: internKey(key), Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: internKey(key), Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: internKey(key), Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: internKey(key), Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: internKey(key), Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: internKey(key), Value: value}
}

// Error returns a field with the fixed key "error". A nil error logs as null.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: internKey(key), Value: value}
}

func Time(key string, value time.Time) Field {
	return Field{Key: internKey(key), Value: value}
}

func Any(key string, value any) Field {
	return Field{Key: internKey(key), Value: value}
}

// ParseLevel normalizes a configured level name. Unknown names map to info.
func ParseLevel(s string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LogLevelTrace:
		return LogLevelTrace
	case LogLevelDebug:
		return LogLevelDebug
	case LogLevelWarn, "warning":
		return LogLevelWarn
	case LogLevelError:
		return LogLevelError
	default:
		return LogLevelInfo
	}
}
