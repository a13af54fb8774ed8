package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipLimiterEntry: tracks a rate limiter and its last use time
type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimit: connection admission per client IP
type IPRateLimit struct {
	limiters map[string]*ipLimiterEntry
	every    rate.Limit
	burst    int
	now      func() time.Time
	mu       sync.Mutex
}

// NewIPRateLimit: perMinute new connections per IP with the given burst.
// perMinute <= 0 admits everything.
func NewIPRateLimit(perMinute float64, burst int) *IPRateLimit {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(perMinute / 60)
	}
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimit{
		limiters: make(map[string]*ipLimiterEntry),
		every:    limit,
		burst:    burst,
		now:      time.Now,
	}
}

// Allow: checks if ip may open another connection
func (iprl *IPRateLimit) Allow(ip string) bool {
	iprl.mu.Lock()
	defer iprl.mu.Unlock()

	now := iprl.now()
	entry, exists := iprl.limiters[ip]
	if !exists {
		entry = &ipLimiterEntry{limiter: rate.NewLimiter(iprl.every, iprl.burst)}
		iprl.limiters[ip] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

// Cleanup: forgets limiters idle for longer than maxIdle
func (iprl *IPRateLimit) Cleanup(maxIdle time.Duration) int {
	iprl.mu.Lock()
	defer iprl.mu.Unlock()

	now := iprl.now()
	removed := 0
	for ip, entry := range iprl.limiters {
		if now.Sub(entry.lastSeen) > maxIdle {
			delete(iprl.limiters, ip)
			removed++
		}
	}
	return removed
}

// Run: periodic Cleanup until ctx is done
func (iprl *IPRateLimit) Run(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			iprl.Cleanup(maxIdle)
		}
	}
}

// Tracked: number of IPs with a live limiter
func (iprl *IPRateLimit) Tracked() int {
	iprl.mu.Lock()
	defer iprl.mu.Unlock()
	return len(iprl.limiters)
}

// LimitConnections rejects handshakes from IPs over their budget
func LimitConnections(iprl *IPRateLimit) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !iprl.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many connections"})
			return
		}
		c.Next()
	}
}
