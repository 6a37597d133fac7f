// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with
// per-identity buckets and opportunistic garbage collection. It guards the
// cost-bearing routes (prompt polishing, checkout creation, ad rewards) and
// runs after RequireAuth so buckets are keyed by user.
//
// Notes:
//   - The limiter is process-local. Horizontally scaled deployments need a
//     shared limiter to enforce global limits.
//   - Idempotent replays flagged by IdempotencyValidator skip limiting.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var rateLimited = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	},
	[]string{"path"},
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by authenticated user ("user:<id>") and falls
// back to the client address ("ip:<addr>").
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if uid := UserID(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements a per-key token-bucket rate limiter. Idle buckets
// are evicted after a TTL during lookups. Safe for concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter constructs a RateLimiter refilling rps tokens per second
// with the given burst (coerced to at least 1), keyed by keyFn.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByUserOrIP()
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// getVisitor returns the limiter for key, creating it if absent. Every 5000
// lookups idle buckets are evicted first, so a stale bucket being fetched is
// recreated rather than refreshed.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, vv := range rl.visitors {
			if now.Sub(vv.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay that skips limiting.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns a Gin middleware enforcing the per-key limits. Rejected
// requests get a Retry-After header (whole seconds, at least 1) and:
//
//	HTTP/1.1 429 Too Many Requests
//	{ "request_id": "...", "code": "rate_limited", "message": "rate limit exceeded" }
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		lim := rl.getVisitor(rl.keyFn(c))
		r := lim.Reserve()
		if r.OK() {
			delay := r.Delay()
			if delay == 0 {
				c.Next()
				return
			}
			r.Cancel()
			c.Header("Retry-After", retryAfter(delay))
		} else {
			c.Header("Retry-After", "1")
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		rateLimited.WithLabelValues(path).Inc()

		rid := GetRequestID(c)
		if rid == "" {
			rid = c.Writer.Header().Get(requestIDHeader)
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": rid,
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}

// retryAfter renders d as whole seconds, rounded up, minimum 1.
func retryAfter(d time.Duration) string {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}
