package papersources

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is the token bucket shared by every call a Source Client makes, so
// concurrent enrichments of different DOIs still respect the source's quota.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows ratePerSecond sustained requests with the given burst.
// A non-positive rate disables limiting; a burst below one is raised to one.
//
// Semantic Scholar without a key tolerates about one request per second, while
// the OpenAlex and Crossref polite pools accept ten.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(ratePerSecond)
	if ratePerSecond <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, max(burst, 1))}
}

// Wait blocks until a request is allowed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Allow reports whether a request may happen now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Unlimited reports whether the limiter was built without a rate.
func (r *RateLimiter) Unlimited() bool {
	return r.limiter.Limit() == rate.Inf
}
