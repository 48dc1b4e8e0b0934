package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"code-reveal-backend/internal/logger"
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// IPRateLimiter is a coarse in-process token bucket per client IP. It sits in
// front of the shared submission window kept in Redis and protects the state
// endpoint, which has no window of its own.
type IPRateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*limiterEntry
	rps      int
	burst    int
	log      *logger.Logger
}

func NewIPRateLimiter(rps, burst int, log *logger.Logger) *IPRateLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &IPRateLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rps,
		burst:    burst,
		log:      log,
	}
}

func (l *IPRateLimiter) get(key string) *rate.Limiter {
	l.mu.RLock()
	entry, ok := l.limiters[key]
	l.mu.RUnlock()
	if ok {
		l.mu.Lock()
		entry.lastAccess = time.Now()
		l.mu.Unlock()
		return entry.limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok = l.limiters[key]; ok {
		entry.lastAccess = time.Now()
		return entry.limiter
	}

	entry = &limiterEntry{
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(l.rps)), l.burst),
		lastAccess: time.Now(),
	}
	l.limiters[key] = entry
	return entry.limiter
}

// Cleanup drops limiters idle for longer than maxIdle and returns how many went.
func (l *IPRateLimiter) Cleanup(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, entry := range l.limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// RunCleanup sweeps idle limiters every interval until ctx is done.
func (l *IPRateLimiter) RunCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := l.Cleanup(maxIdle); n > 0 {
				l.log.Debugf("Removed %d idle rate limiters", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (l *IPRateLimiter) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}

func RateLimitMiddleware(l *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please slow down."})
			return
		}
		c.Next()
	}
}
