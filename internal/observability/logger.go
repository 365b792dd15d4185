package observability

import "github.com/tphakala/proxnode/internal/logger"

var log = logger.Global().Module("observability")
