// Package ratelimit throttles inbound playground requests.
//
// Each caller gets its own token bucket keyed by a fingerprint of the
// credential it presents, so one noisy client cannot starve the others and
// the raw credential is never used as a map key or logged.
//
// Basic usage:
//
//	limiter := ratelimit.NewKeyedLimiter(60, 10) // 60 RPM, burst of 10
//
//	if ok, retryAfter := limiter.Allow(fingerprint); !ok {
//		// answer 429 with Retry-After: retryAfter
//	}
package ratelimit

// Usage is a snapshot of one caller's bucket, reported to clients in the
// X-RateLimit-* response headers.
type Usage struct {
	// Used is the number of requests consumed from a full bucket.
	Used int `json:"used"`

	// Limit is the number of requests allowed per minute.
	Limit int `json:"limit"`

	// Remaining is the number of requests that may start right now.
	Remaining int `json:"remaining"`
}
