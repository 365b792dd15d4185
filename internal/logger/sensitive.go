package logger

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

// sensitivePatterns scrub credentials from free text such as broker URLs,
// endpoints and aggregator response bodies.
var sensitivePatterns = []redaction{
	{regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9\-._~+/]+=*)`), "${1}" + redacted},
	{regexp.MustCompile(`(?i)([a-z][a-z0-9+.\-]*://[^:/@\s]+:)([^@/\s]+)(@)`), "${1}" + redacted + "${3}"},
	{regexp.MustCompile(`(?i)((?:api[_-]?key|token|secret|passw(?:or)?d)\s*[:=]\s*)([^;,&\s]{3,})`), "${1}" + redacted},
}

// sensitiveKeywords mark field keys whose string values are never logged.
var sensitiveKeywords = []string{"password", "passwd", "secret", "token", "dsn", "apikey", "api_key"}

// RedactSensitiveData replaces credentials in input with [REDACTED].
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for _, r := range sensitivePatterns {
		input = r.pattern.ReplaceAllString(input, r.replacement)
	}
	return input
}

// RedactSensitiveFields returns a copy of fields with sensitive string values
// replaced.
func RedactSensitiveFields(fields []Field) []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	for i := range out {
		s, ok := out[i].Value.(string)
		if !ok || s == "" {
			continue
		}
		key := strings.ToLower(out[i].Key)
		for _, kw := range sensitiveKeywords {
			if strings.Contains(key, kw) {
				out[i].Value = redacted
				break
			}
		}
	}
	return out
}
