// internal/app/system/ratelimit/ratelimit.go
//
// Package ratelimit throttles repeated login attempts against one account.
// Per-IP limits are applied at the router with httprate.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Limiter provides fixed-window rate limiting per key.
// It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int           // max requests per window
	duration time.Duration // window duration
	now      func() time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a new rate limiter.
// limit: maximum requests allowed per duration
// duration: the time window for counting requests
func New(limit int, duration time.Duration) *Limiter {
	return &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
	}
}

// Allow checks if a request from the given key should be allowed.
// Returns true if allowed, false if rate limited.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.windows[key]

	// If no window exists or window expired, create new one
	if !exists || now.After(w.expiresAt) {
		l.sweep(now)
		l.windows[key] = &window{
			count:     1,
			expiresAt: now.Add(l.duration),
		}
		return true
	}

	// Window still active - check limit
	if w.count >= l.limit {
		return false
	}

	w.count++
	return true
}

// Remaining returns how many requests are left for this key in the current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists || l.now().After(w.expiresAt) {
		return l.limit
	}

	remaining := l.limit - w.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears the rate limit for a specific key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// sweep drops expired windows. Called with mu held, only when a new
// window is opened, so memory stays bounded without a background goroutine.
func (l *Limiter) sweep(now time.Time) {
	for key, w := range l.windows {
		if now.After(w.expiresAt) {
			delete(l.windows, key)
		}
	}
}

// AccountLimiter limits login attempts per email address to slow targeted
// guessing that is spread across many IPs.
type AccountLimiter struct {
	limiter *Limiter
}

// NewAccountLimiter allows limit attempts per email per window.
// Defaults (limit <= 0): 5 attempts per 5 minutes.
func NewAccountLimiter(limit int, window time.Duration) *AccountLimiter {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &AccountLimiter{limiter: New(limit, window)}
}

func key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Allow records an attempt for email and reports whether it may proceed.
func (a *AccountLimiter) Allow(email string) bool {
	if email == "" {
		return true
	}
	return a.limiter.Allow(key(email))
}

// Reset clears the count for email after a successful login.
func (a *AccountLimiter) Reset(email string) {
	if email != "" {
		a.limiter.Reset(key(email))
	}
}
