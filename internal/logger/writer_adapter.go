package logger

import (
	"bytes"
	"io"
)

// logWriter forwards each written line to a Logger.
type logWriter struct {
	log   Logger
	level LogLevel
}

// NewLogWriter returns an io.Writer that logs every line written to it at
// level. It bridges libraries that expect a *log.Logger or an io.Writer.
func NewLogWriter(l Logger, level LogLevel) io.Writer {
	return &logWriter{log: l, level: level}
}

func (w *logWriter) Write(p []byte) (int, error) {
	for line := range bytes.SplitSeq(bytes.TrimRight(p, "\r\n"), []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		w.log.Log(w.level, string(bytes.TrimRight(line, "\r")))
	}
	return len(p), nil
}
