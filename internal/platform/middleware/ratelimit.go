package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/juju/ratelimit"
	"github.com/labstack/echo/v4"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int64
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	cfg     RateLimitConfig
	clients map[string]*ratelimit.Bucket
	mu      sync.RWMutex
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		clients: make(map[string]*ratelimit.Bucket),
	}
}

func (rl *RateLimiter) bucket(key string) *ratelimit.Bucket {
	rl.mu.RLock()
	b, ok := rl.clients[key]
	rl.mu.RUnlock()
	if ok {
		return b
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if b, ok = rl.clients[key]; !ok {
		b = ratelimit.NewBucketWithRate(rl.cfg.RequestsPerSecond, rl.cfg.BurstSize)
		rl.clients[key] = b
	}
	return b
}

// Prune drops the buckets of clients that are back at full capacity.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	n := 0
	for key, b := range rl.clients {
		if b.Available() == b.Capacity() {
			delete(rl.clients, key)
			n++
		}
	}
	return n
}

// RunPruner calls Prune every interval until ctx is done.
func (rl *RateLimiter) RunPruner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Prune()
		}
	}
}

// Middleware limits each client IP, scoped by tenant when a token carried one.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	limit := strconv.FormatInt(rl.cfg.BurstSize, 10)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if tenantID, ok := c.Get("jwt_tenant_id").(string); ok && tenantID != "" {
				key = tenantID + ":" + key
			}

			b := rl.bucket(key)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			if b.TakeAvailable(1) < 1 {
				h.Set("X-RateLimit-Remaining", "0")
				h.Set("Retry-After", strconv.Itoa(retryAfter(rl.cfg.RequestsPerSecond)))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(b.Available(), 10))
			return next(c)
		}
	}
}

func retryAfter(rate float64) int {
	if rate <= 0 {
		return 1
	}
	return int(1/rate) + 1
}
