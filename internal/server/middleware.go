package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/docfusion/docfusion/docfusion/metrics"
	"github.com/docfusion/docfusion/internal/logger"
)

const (
	headerRequestID = "X-Request-ID"
	loggerKey       = "logger"
)

// RequestID assigns every request an id, reusing a client supplied one, and
// attaches a request scoped logger.
func RequestID(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)

		ctx := logger.ContextWithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Set(loggerKey, logger.WithRequestID(ctx, base))
		c.Next()
	}
}

func loggerFrom(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}

// AccessLog logs each request and counts it by route and status.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.RequestTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		loggerFrom(c).Info("request",
			"method", c.Request.Method,
			"path", route,
			"status", status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

// APIKey rejects requests that carry neither X-API-Key nor an
// Authorization: Bearer header matching key.
func APIKey(key string) gin.HandlerFunc {
	want := []byte(key)
	return func(c *gin.Context) {
		got := c.GetHeader("X-API-Key")
		if got == "" {
			const prefix = "Bearer "
			if h := c.GetHeader("Authorization"); strings.HasPrefix(h, prefix) {
				got = strings.TrimSpace(strings.TrimPrefix(h, prefix))
			}
		}
		if got == "" {
			fail(c, http.StatusUnauthorized, "unauthorized", "missing api key")
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			fail(c, http.StatusUnauthorized, "unauthorized", "invalid api key")
			return
		}
		c.Next()
	}
}

const (
	defaultLimiterIdleTTL = 10 * time.Minute
	defaultMaxClients     = 10000
)

// RateLimiter keeps one token bucket per client IP. Buckets idle for
// longer than the idle TTL are dropped, and the map never holds more than
// maxClients buckets.
type RateLimiter struct {
	mu         sync.Mutex
	clients    map[string]*client
	rate       rate.Limit
	burst      int
	idleTTL    time.Duration
	maxClients int
	now        func() time.Time
	lastSweep  time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiterOption func(*RateLimiter)

// WithLimiterClock replaces time.Now.
func WithLimiterClock(now func() time.Time) RateLimiterOption {
	return func(rl *RateLimiter) { rl.now = now }
}

func WithIdleTTL(d time.Duration) RateLimiterOption {
	return func(rl *RateLimiter) { rl.idleTTL = d }
}

func WithMaxClients(n int) RateLimiterOption {
	return func(rl *RateLimiter) { rl.maxClients = n }
}

func NewRateLimiter(r rate.Limit, burst int, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		clients:    make(map[string]*client),
		rate:       r,
		burst:      burst,
		idleTTL:    defaultLimiterIdleTTL,
		maxClients: defaultMaxClients,
		now:        time.Now,
	}
	// an idle bucket must have refilled before it is dropped
	if r > 0 && r != rate.Inf {
		refill := time.Duration(float64(burst) / float64(r) * float64(time.Second))
		rl.idleTTL = max(rl.idleTTL, refill)
	}
	for _, o := range opts {
		o(rl)
	}
	rl.lastSweep = rl.now()
	return rl
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		rl.sweep(now)
	}

	c, ok := rl.clients[ip]
	if !ok {
		if len(rl.clients) >= rl.maxClients {
			rl.sweep(now)
		}
		if len(rl.clients) >= rl.maxClients {
			rl.evictOldest()
		}
		c = &client{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

func (rl *RateLimiter) sweep(now time.Time) {
	for ip, c := range rl.clients {
		if now.Sub(c.lastSeen) >= rl.idleTTL {
			delete(rl.clients, ip)
		}
	}
	rl.lastSweep = now
}

func (rl *RateLimiter) evictOldest() {
	var oldestIP string
	var oldest time.Time
	for ip, c := range rl.clients {
		if oldestIP == "" || c.lastSeen.Before(oldest) {
			oldestIP, oldest = ip, c.lastSeen
		}
	}
	delete(rl.clients, oldestIP)
}

func (rl *RateLimiter) Allow(ip string) bool {
	return rl.limiter(ip).Allow()
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// RateLimit limits each client IP to requestsPerMinute with the given burst.
func RateLimit(requestsPerMinute, burst int) gin.HandlerFunc {
	if burst < 1 {
		burst = 1
	}
	rl := NewRateLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), burst)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = c.RemoteIP()
		}
		if !rl.Allow(ip) {
			fail(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}
		c.Next()
	}
}
