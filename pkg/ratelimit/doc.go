// Package ratelimit throttles image downloads on the client side.
//
// The gallery does not negotiate limits, so throttling is opt-in through
// rate_limit.requests_per_minute. Two algorithms are available.
//
// The token bucket (default) allows a burst of requests_per_minute requests
// and then spaces requests 60s/requests_per_minute apart. The sliding window
// admits at most requests_per_minute requests in any 60 second span, so a
// burst is followed by a pause until the oldest request ages out.
//
// Usage:
//
//	limiter, err := ratelimit.New(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Strategy)
//	if err != nil {
//	    return err
//	}
//
//	// Block until allowed or the run is cancelled
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
