package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// FixedWindowLimiter counts requests per key inside fixed windows. When a
// window elapses the counter for that key starts over; the reset time is
// reported to clients via rate-limit headers.
type FixedWindowLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string]*windowEntry
	now     func() time.Time
}

type windowEntry struct {
	start time.Time
	count int
}

func NewFixedWindowLimiter(limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		limit:   limit,
		window:  window,
		entries: make(map[string]*windowEntry),
		now:     time.Now,
	}
}

// Take records one request for key and reports whether it is within the
// limit, how many requests remain in the current window, and when the
// window resets.
func (rl *FixedWindowLimiter) Take(key string) (allowed bool, remaining int, reset time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	entry, ok := rl.entries[key]
	if !ok || now.Sub(entry.start) >= rl.window {
		if len(rl.entries) > 4096 {
			rl.sweepLocked(now)
		}
		entry = &windowEntry{start: now}
		rl.entries[key] = entry
	}

	reset = entry.start.Add(rl.window)

	if entry.count >= rl.limit {
		return false, 0, reset
	}

	entry.count++
	return true, rl.limit - entry.count, reset
}

func (rl *FixedWindowLimiter) sweepLocked(now time.Time) {
	for key, entry := range rl.entries {
		if now.Sub(entry.start) >= rl.window {
			delete(rl.entries, key)
		}
	}
}

// SetNowFunc overrides the time source for tests.
func (rl *FixedWindowLimiter) SetNowFunc(now func() time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.now = now
}

// KeyFunc derives the limiter key for a request.
type KeyFunc func(c *gin.Context) string

// KeyByIP keys on the client network address. Used for unauthenticated
// route groups (auth endpoints).
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByUser keys on the authenticated user, falling back to the client IP
// when the request carries no identity.
func KeyByUser(c *gin.Context) string {
	if userID := c.GetString("userId"); userID != "" {
		return userID
	}
	return c.ClientIP()
}

// KeyByUserAndResource scopes the limit to one resource per user so bursts
// against one document do not starve engagement on others.
func KeyByUserAndResource(c *gin.Context) string {
	return KeyByUser(c) + "|" + c.Param("id")
}

// RateLimit wraps a limiter as Gin middleware. Rate-limit headers are set on
// every response so clients can pace themselves before hitting the wall.
func RateLimit(rl *FixedWindowLimiter, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, reset := rl.Take(key(c))

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(reset).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try again later"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Route-group limiters. Auth is keyed by IP (no identity yet), writes by
// user, engagement by user+resource, everything else by user-or-IP.
var (
	AuthLimiter       = NewFixedWindowLimiter(10, 15*time.Minute)
	WriteLimiter      = NewFixedWindowLimiter(30, time.Minute)
	EngagementLimiter = NewFixedWindowLimiter(60, time.Minute)
	GeneralLimiter    = NewFixedWindowLimiter(120, time.Minute)
)
