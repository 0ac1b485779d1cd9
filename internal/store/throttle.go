package store

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle is the shared ticket dispenser for destructive store operations.
// Every archive or delete call acquires a ticket first, so destructive calls
// are spaced at least the configured interval apart process-wide, no matter
// how many jobs issue them.
type Throttle struct {
	limiter *rate.Limiter
}

func NewThrottle(minInterval time.Duration) *Throttle {
	if minInterval <= 0 {
		minInterval = 500 * time.Millisecond
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Wait blocks until the next ticket is available or the context ends.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.limiter == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}
