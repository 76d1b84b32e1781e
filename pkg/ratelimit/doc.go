// Package ratelimit throttles outbound image requests.
//
// TokenBucket earns one token per interval up to its burst capacity, so a
// short run of requests goes out at once and the rest follow at the average
// rate. SlidingWindow never lets more than the limit through in any rolling
// window. New picks one from the rate_limit configuration:
//
//	limiter := ratelimit.New(cfg.RateLimit)
//	if limiter != nil {
//		if err := limiter.Wait(ctx); err != nil {
//			return err
//		}
//	}
//
// The page document load is not throttled.
package ratelimit
