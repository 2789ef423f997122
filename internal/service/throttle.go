package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginThrottle rate-limits login attempts per account so repeated failures
// cannot be used to brute-force a password. It is safe for concurrent use;
// stale limiters are cleaned up in the background until Close is called.
type LoginThrottle struct {
	mu       sync.Mutex
	limiters map[string]*throttleEntry
	limit    rate.Limit
	burst    int

	stop     chan struct{}
	stopOnce sync.Once
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginThrottle allows burst immediate attempts per key, refilling one
// attempt per interval. Callers own the returned throttle and must Close it.
func NewLoginThrottle(interval time.Duration, burst int) *LoginThrottle {
	t := &LoginThrottle{
		limiters: make(map[string]*throttleEntry),
		limit:    rate.Every(interval),
		burst:    burst,
		stop:     make(chan struct{}),
	}
	go t.cleanup()
	return t
}

// Close stops the background cleanup goroutine. Allow keeps working after
// Close; only the stale-limiter eviction stops. Close is idempotent.
func (t *LoginThrottle) Close() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// Allow reports whether the given key may attempt a login now.
func (t *LoginThrottle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.limiters[key]
	if !ok {
		e = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[key] = e
	}
	e.lastSeen = time.Now()
	return e.limiter.Allow()
}

// cleanup removes limiters not seen for 10 minutes.
func (t *LoginThrottle) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
		}
		t.mu.Lock()
		cutoff := time.Now().Add(-10 * time.Minute)
		for key, e := range t.limiters {
			if e.lastSeen.Before(cutoff) {
				delete(t.limiters, key)
			}
		}
		t.mu.Unlock()
	}
}
