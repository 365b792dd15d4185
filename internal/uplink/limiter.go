package uplink

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/proxnode/internal/errors"
	"github.com/tphakala/proxnode/internal/report"
	"github.com/tphakala/proxnode/internal/timeutil"
)

// ErrRateLimited is returned when a send comes sooner than the minimum
// interval after the previous one. The report is dropped, not queued.
var ErrRateLimited = errors.NewStd("uplink send rate limited")

// Limited spaces sends to at most one per interval.
type Limited struct {
	next    Uplink
	limiter *rate.Limiter
	clock   timeutil.Clock
}

// NewLimited wraps next. A non-positive interval uses DefaultMinInterval.
func NewLimited(next Uplink, interval time.Duration, clock timeutil.Clock) *Limited {
	if interval <= 0 {
		interval = DefaultMinInterval
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		clock:   clock,
	}
}

func (l *Limited) Send(ctx context.Context, r *report.Report) (Result, error) {
	if !l.limiter.AllowN(l.clock.Now(), 1) {
		return Result{}, ErrRateLimited
	}
	return l.next.Send(ctx, r)
}

func (l *Limited) Name() string { return l.next.Name() }

func (l *Limited) Close() error { return l.next.Close() }
