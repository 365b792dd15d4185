package registry

import "github.com/tphakala/proxnode/internal/logger"

// GetLogger returns the registry module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("registry")
}
