package ratelimit

import "time"

// GetRPMLimit returns the RPM limit (for testing).
func (l *TokenBucketLimiter) GetRPMLimit() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rpmLimit
}

// SetClock replaces the limiter clock (for testing).
func (k *KeyedLimiter) SetClock(now func() time.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.now = now
}
