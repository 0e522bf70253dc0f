package captchaforge

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// regenLimiter paces the Refresher's regeneration loop according to
// Settings.RateLimit's dual meaning: an integer N>=1 means "at most N
// regenerations per rolling minute", enforced with a token bucket; a
// fractional, non-zero value f means "sleep floor(f) seconds, then the
// fractional remainder, between regenerations"; zero means unlimited.
type regenLimiter struct {
	unlimited bool
	bucket    *rate.Limiter
	wholeWait time.Duration
	fracWait  time.Duration
}

func newRegenLimiter(rateLimit float64) *regenLimiter {
	if rateLimit <= 0 {
		return &regenLimiter{unlimited: true}
	}
	whole, frac := math.Modf(rateLimit)
	if frac == 0 {
		// N regenerations per 60s, with a burst of 1 so the first
		// regeneration after an idle period doesn't wait a full period.
		return &regenLimiter{bucket: rate.NewLimiter(rate.Limit(whole/60), 1)}
	}
	return &regenLimiter{
		wholeWait: time.Duration(whole) * time.Second,
		fracWait:  time.Duration(frac * float64(time.Second)),
	}
}

func (r *regenLimiter) wait(ctx context.Context) {
	switch {
	case r.unlimited:
		return
	case r.bucket != nil:
		_ = r.bucket.Wait(ctx)
	default:
		select {
		case <-time.After(r.wholeWait):
		case <-ctx.Done():
			return
		}
		select {
		case <-time.After(r.fracWait):
		case <-ctx.Done():
		}
	}
}
