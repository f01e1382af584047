package handler

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SecurityHeaders adds security response headers (CSP, X-Frame-Options, etc.)
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-XSS-Protection", "0")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// RateLimiter limits requests per client IP and minute. It keeps a sliding
// window in memory, or a fixed window in Redis when built with
// NewRedisRateLimiter so that every instance shares the budget.
type RateLimiter struct {
	maxPerMinute      int
	trustedProxyCount int
	rdb               *redis.Client
	prefix            string

	mu      sync.Mutex
	clients map[string]*clientWindow
}

type clientWindow struct {
	timestamps []time.Time
}

// NewRateLimiter creates an in-memory rate limiter.
// Assumes a single trusted reverse proxy by default.
func NewRateLimiter(maxPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		maxPerMinute:      maxPerMinute,
		trustedProxyCount: 1,
		clients:           make(map[string]*clientWindow),
	}
	go rl.cleanupLoop()
	return rl
}

// NewRedisRateLimiter creates a rate limiter backed by rdb. Redis errors let
// the request through.
func NewRedisRateLimiter(rdb *redis.Client, maxPerMinute int) *RateLimiter {
	return &RateLimiter{
		maxPerMinute:      maxPerMinute,
		trustedProxyCount: 1,
		rdb:               rdb,
		prefix:            "rl:",
	}
}

// cleanupLoop periodically removes stale entries from the clients map.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		windowStart := time.Now().Add(-time.Minute)
		rl.mu.Lock()
		for ip, cw := range rl.clients {
			cw.prune(windowStart)
			if len(cw.timestamps) == 0 {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (cw *clientWindow) prune(windowStart time.Time) {
	valid := cw.timestamps[:0]
	for _, ts := range cw.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	cw.timestamps = valid
}

// Middleware returns an http.Handler that enforces rate limits.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.clientIP(r)

		var allowed bool
		var retryAfter time.Duration
		if rl.rdb != nil {
			allowed, retryAfter = rl.allowRedis(r.Context(), ip)
		} else {
			allowed, retryAfter = rl.allowMemory(ip, time.Now())
		}
		if !allowed {
			slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", retryAfterSeconds(retryAfter))
			writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allowMemory(ip string, now time.Time) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cw, ok := rl.clients[ip]
	if !ok {
		cw = &clientWindow{}
		rl.clients[ip] = cw
	}
	cw.prune(now.Add(-time.Minute))

	if len(cw.timestamps) >= rl.maxPerMinute {
		return false, cw.timestamps[0].Add(time.Minute).Sub(now)
	}
	cw.timestamps = append(cw.timestamps, now)
	return true, 0
}

func (rl *RateLimiter) allowRedis(ctx context.Context, ip string) (bool, time.Duration) {
	key := rl.prefix + ip
	var count *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rl.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		count = p.Incr(ctx, key)
		p.ExpireNX(ctx, key, time.Minute)
		ttl = p.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		slog.Warn("rate limiter unavailable", "error", err)
		return true, 0
	}
	if count.Val() > int64(rl.maxPerMinute) {
		return false, ttl.Val()
	}
	return true, 0
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Seconds()) + 1
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// clientIP extracts the real client IP, reading from the rightmost trusted
// proxy position in X-Forwarded-For to prevent spoofing.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && rl.trustedProxyCount > 0 {
		parts := strings.Split(xff, ",")
		idx := len(parts) - rl.trustedProxyCount
		if idx >= 0 && idx < len(parts) {
			return strings.TrimSpace(parts[idx])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
