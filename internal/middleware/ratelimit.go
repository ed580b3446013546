package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter caps requests per client IP over a sliding window kept in a
// Redis sorted set, one member per request.
type RateLimiter struct {
	client redis.Cmdable
	scope  string
	limit  int
	window time.Duration
}

// NewRateLimiter allows limit requests per windowSec seconds. scope
// namespaces the Redis keys so routes can be limited apart.
func NewRateLimiter(client redis.Cmdable, scope string, limit, windowSec int) *RateLimiter {
	return &RateLimiter{
		client: client,
		scope:  scope,
		limit:  limit,
		window: time.Duration(windowSec) * time.Second,
	}
}

// Middleware enforces the limit. A Redis failure lets the request through:
// the pipeline is more useful degraded than unavailable.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		used, err := rl.record(r.Context(), rl.key(ip))
		if err != nil {
			slog.Warn("rate limiter unavailable, allowing request", "error", err, "ip", ip)
			next.ServeHTTP(w, r)
			return
		}

		remaining := max(rl.limit-used-1, 0)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if used >= rl.limit {
			slog.Debug("rate limit exceeded", "ip", ip, "scope", rl.scope)
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many requests"}` + "\n"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) key(ip string) string {
	return "ratelimit:" + rl.scope + ":" + ip
}

// record drops entries older than the window, counts what is left and adds
// the current request. It returns the count seen before this request.
func (rl *RateLimiter) record(ctx context.Context, key string) (int, error) {
	now := time.Now()
	cutoff := strconv.FormatInt(now.Add(-rl.window).UnixMilli(), 10)

	pipe := rl.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+cutoff)
	count := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: strconv.FormatInt(now.UnixNano(), 10)})
	pipe.Expire(ctx, key, rl.window+time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(count.Val()), nil
}

// clientIP prefers the first X-Forwarded-For hop; the service runs behind a
// trusted proxy.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
