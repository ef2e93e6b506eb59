// Package throttle paces consecutive aggregator calls to stay under the
// upstream rate limit. Static pacing only; no backoff or jitter.
package throttle

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum delay between consecutive calls. Burst is 1
// so delays can never be "saved up" and spent as a burst.
type Pacer struct {
	limiter *rate.Limiter
}

// New creates a Pacer with the given minimum inter-call delay.
func New(delay time.Duration) *Pacer {
	l := rate.NewLimiter(rate.Every(delay), 1)
	// Spend the initial token so the very first Wait already honors the gap.
	l.Allow()
	return &Pacer{limiter: l}
}

// Wait blocks until at least the configured delay has elapsed since the
// previous grant. Returns a non-nil error only if ctx is cancelled
// while waiting.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
