// Package secrets resolves credentials referenced from the config file:
// inline values, ${VAR} environment references, or mounted secret files.
// Resolved values are never logged.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/proxnode/internal/errors"
	"github.com/tphakala/proxnode/internal/logger"
)

// MaxFileSize caps how much of a secret file is read.
const MaxFileSize = 64 * 1024

// Ref names one credential. File takes precedence over Value.
type Ref struct {
	Value string
	File  string
}

// Resolve returns the credential. An empty Ref resolves to "".
func (r Ref) Resolve() (string, error) {
	if r.File != "" {
		return ReadFile(r.File)
	}
	return Expand(r.Value)
}

// Expand substitutes ${VAR} and ${VAR:-fallback} references. A variable
// that is unset or empty without a fallback is an error.
func Expand(s string) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	var missing []string
	out := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasFallback {
			return fallback
		}
		missing = append(missing, name)
		return ""
	})

	if len(missing) > 0 {
		return "", errors.Newf("missing environment variable(s): %s", strings.Join(missing, ", ")).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return out, nil
}

// ReadFile reads a secret file such as /run/secrets/uplink_token. Trailing
// newlines are trimmed; an empty file is an error. Files readable by group
// or others are accepted with a warning.
func ReadFile(path string) (string, error) {
	clean := filepath.Clean(path)

	info, err := os.Stat(clean)
	if err != nil {
		return "", fileError(err, clean)
	}
	if !info.Mode().IsRegular() {
		return "", fileError(fmt.Errorf("not a regular file"), clean)
	}
	if info.Size() > MaxFileSize {
		return "", fileError(fmt.Errorf("larger than %d bytes", MaxFileSize), clean)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		GetLogger().Warn("secret file is readable by group or others",
			logger.String("path", clean),
			logger.String("mode", fmt.Sprintf("%04o", perm)))
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return "", fileError(err, clean)
	}
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fileError(fmt.Errorf("file is empty"), clean)
	}
	return secret, nil
}

func fileError(err error, path string) error {
	return errors.New(fmt.Errorf("secret file %s: %w", path, err)).
		Component("secrets").
		Category(errors.CategoryConfiguration).
		Build()
}

// GetLogger returns the secrets module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("secrets")
}
