package ratelimit

import (
	"sync"
	"time"
)

// DefaultIdleTTL is how long an unused per-key bucket is kept.
const DefaultIdleTTL = 10 * time.Minute

type keyedEntry struct {
	limiter  *TokenBucketLimiter
	lastSeen time.Time
}

// KeyedLimiter keeps one token bucket per key. Buckets that have not been
// used for the idle TTL are dropped on the next sweep, which runs at most
// once per TTL as part of Allow.
type KeyedLimiter struct {
	now       func() time.Time
	entries   map[string]*keyedEntry
	lastSweep time.Time
	rpm       int
	burst     int
	idleTTL   time.Duration
	mu        sync.Mutex
}

// NewKeyedLimiter creates a per-key limiter with the given limits.
func NewKeyedLimiter(rpm, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		now:     time.Now,
		entries: make(map[string]*keyedEntry),
		rpm:     rpm,
		burst:   burst,
		idleTTL: DefaultIdleTTL,
	}
}

// Allow consumes one request from key's bucket. When the bucket is empty it
// returns false and the time until a request would be admitted.
func (k *KeyedLimiter) Allow(key string) (ok bool, retryAfter time.Duration) {
	return k.bucket(key).Reserve()
}

// Usage reports key's bucket after its latest Allow.
func (k *KeyedLimiter) Usage(key string) Usage {
	return k.bucket(key).GetUsage()
}

func (k *KeyedLimiter) bucket(key string) *TokenBucketLimiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if now.Sub(k.lastSweep) >= k.idleTTL {
		k.sweepLocked(now)
	}

	entry, ok := k.entries[key]
	if !ok {
		entry = &keyedEntry{limiter: NewTokenBucketLimiter(k.rpm, k.burst)}
		k.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (k *KeyedLimiter) sweepLocked(now time.Time) {
	for key, entry := range k.entries {
		if now.Sub(entry.lastSeen) >= k.idleTTL {
			delete(k.entries, key)
		}
	}
	k.lastSweep = now
}

// SetLimit applies new limits to every bucket, existing and future.
func (k *KeyedLimiter) SetLimit(rpm, burst int) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.rpm = rpm
	k.burst = burst
	for _, entry := range k.entries {
		entry.limiter.SetLimit(rpm, burst)
	}
}

// Len returns the number of tracked keys.
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
