package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRateLimiter(t *testing.T, limit, windowSec int) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	rl := NewRateLimiter(client, "recommend", limit, windowSec)
	return rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})), mr
}

func hit(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/v1/recommendations", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	h, _ := setupRateLimiter(t, 5, 60)

	for i := 0; i < 5; i++ {
		rec := hit(h, "192.168.1.1:12345")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	h, _ := setupRateLimiter(t, 3, 60)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:12345").Code)
	}

	rec := hit(h, "10.0.0.1:12345")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"too many requests"}`, rec.Body.String())
}

func TestRateLimiter_RemainingCountsDown(t *testing.T) {
	h, _ := setupRateLimiter(t, 3, 60)

	var remaining []string
	for i := 0; i < 4; i++ {
		rec := hit(h, "10.0.0.9:1")
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		remaining = append(remaining, rec.Header().Get("X-RateLimit-Remaining"))
	}
	assert.Equal(t, []string{"2", "1", "0", "0"}, remaining)
}

func TestRateLimiter_DifferentIPsIndependent(t *testing.T) {
	h, _ := setupRateLimiter(t, 2, 60)

	hit(h, "1.1.1.1:1")
	hit(h, "1.1.1.1:1")
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "1.1.1.1:1").Code)
	assert.Equal(t, http.StatusOK, hit(h, "2.2.2.2:1").Code)
}

func TestRateLimiter_FailsOpenOnRedisError(t *testing.T) {
	h, mr := setupRateLimiter(t, 1, 60)
	mr.Close()

	rec := hit(h, "3.3.3.3:1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiter_UsesFirstForwardedIP(t *testing.T) {
	h, mr := setupRateLimiter(t, 1, 60)

	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, mr.Exists("ratelimit:recommend:203.0.113.7"))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "198.51.100.4:5555", "198.51.100.4"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.9"}, "10.0.0.1:1", "198.51.100.9"},
		{"forwarded wins", map[string]string{"X-Forwarded-For": " 203.0.113.1 ", "X-Real-IP": "198.51.100.9"}, "10.0.0.1:1", "203.0.113.1"},
		{"no port", nil, "unix-socket", "unix-socket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
