package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const unlimitedRate = 1_000_000 // Very high rate for "unlimited"

// TokenBucketLimiter is one caller's bucket over golang.org/x/time/rate.
//
// The bucket refills at rpm/60 requests per second and holds burst requests,
// so a quiet caller can send a short burst and is then shaped to the rate.
//
// Thread safety: All methods are safe for concurrent use.
type TokenBucketLimiter struct {
	limiter  *rate.Limiter
	rpmLimit int
	burst    int
	mu       sync.RWMutex // Protects limit fields and limiter updates
}

// NewTokenBucketLimiter creates a new token bucket rate limiter.
// Zero or negative rpm means unlimited; zero or negative burst means rpm.
func NewTokenBucketLimiter(rpm, burst int) *TokenBucketLimiter {
	rpm, burst = normalizeLimits(rpm, burst)
	return &TokenBucketLimiter{
		limiter:  newLimiter(rpm, burst),
		rpmLimit: rpm,
		burst:    burst,
	}
}

func normalizeLimits(rpm, burst int) (normalizedRPM, normalizedBurst int) {
	if rpm <= 0 {
		rpm = unlimitedRate
	}
	if burst <= 0 {
		burst = rpm
	}
	return rpm, burst
}

func newLimiter(rpm, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
}

// Allow consumes one token if available.
func (l *TokenBucketLimiter) Allow() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiter.Allow()
}

// Reserve consumes one token if available. Otherwise it consumes nothing and
// returns how long the caller should wait before retrying.
func (l *TokenBucketLimiter) Reserve() (ok bool, retryAfter time.Duration) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := time.Now()
	reservation := l.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, time.Minute
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// SetLimit replaces the bucket with one using the new limits. The new bucket
// starts full.
func (l *TokenBucketLimiter) SetLimit(rpm, burst int) {
	rpm, burst = normalizeLimits(rpm, burst)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.limiter = newLimiter(rpm, burst)
	l.rpmLimit = rpm
	l.burst = burst
}

// GetUsage returns the bucket's current fill.
func (l *TokenBucketLimiter) GetUsage() Usage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	remaining := clampUsage(int(l.limiter.Tokens()), l.burst)
	return Usage{
		Used:      l.burst - remaining,
		Limit:     l.rpmLimit,
		Remaining: remaining,
	}
}

func clampUsage(remaining, limit int) int {
	if remaining < 0 {
		return 0
	}
	if remaining > limit {
		return limit
	}
	return remaining
}
