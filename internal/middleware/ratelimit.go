package middleware

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/ledgerweb/internal/apperror"
)

// rateLimitEntry tracks request counts for one client within a window.
type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// rateLimiter is a fixed-window counter per client IP and route. Auth forms
// are limited per route so a burst of code verifications does not lock a
// user out of the login form.
type rateLimiter struct {
	mu          sync.Mutex
	entries     map[string]*rateLimitEntry
	maxRequests int
	window      time.Duration
	now         func() time.Time
	lastSweep   time.Time
}

func newRateLimiter(maxRequests int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		entries:     make(map[string]*rateLimitEntry),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// allow records one request for key and reports whether it is within the
// limit. Expired entries are swept at most once per window, under the same
// lock, so the limiter needs no background goroutine.
func (l *rateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.window {
		for k, e := range l.entries {
			if now.Sub(e.windowStart) > l.window {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	entry, ok := l.entries[key]
	if !ok || now.Sub(entry.windowStart) > l.window {
		l.entries[key] = &rateLimitEntry{count: 1, windowStart: now}
		return true
	}
	entry.count++
	return entry.count <= l.maxRequests
}

// RateLimit returns middleware that allows maxRequests per client IP and
// route within window. Excess requests get a 429 through the error handler.
func RateLimit(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	limiter := newRateLimiter(maxRequests, window)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.allow(c.RealIP() + " " + c.Path()) {
				return apperror.NewTooManyRequests()
			}
			return next(c)
		}
	}
}
