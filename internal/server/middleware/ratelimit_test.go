package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allow(t *testing.T, l Limiter, key string) bool {
	t.Helper()
	ok, err := l.Allow(context.Background(), key)
	require.NoError(t, err)
	return ok
}

func TestNewRateLimiter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rate := 10
	window := 1 * time.Minute

	limiter := NewRateLimiter(rate, window, logger)

	assert.NotNil(t, limiter)
	assert.Equal(t, rate, limiter.rate)
	assert.Equal(t, window, limiter.window)
	assert.NotNil(t, limiter.buckets)
	assert.NotNil(t, limiter.cleanupC)

	// Cleanup
	limiter.Stop()
}

func TestRateLimiter_Allow(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("First requests within limit are allowed", func(t *testing.T) {
		limiter := NewRateLimiter(5, 1*time.Minute, logger)
		defer limiter.Stop()

		// Первые 5 запросов должны пройти
		for i := 0; i < 5; i++ {
			assert.True(t, allow(t, limiter, "192.168.1.1"), fmt.Sprintf("request %d should be allowed", i+1))
		}
	})

	t.Run("Requests over limit are denied", func(t *testing.T) {
		limiter := NewRateLimiter(3, 1*time.Minute, logger)
		defer limiter.Stop()

		for i := 0; i < 3; i++ {
			assert.True(t, allow(t, limiter, "192.168.1.2"))
		}

		// 4-й запрос блокируется
		assert.False(t, allow(t, limiter, "192.168.1.2"), "request over limit should be denied")
	})

	t.Run("Different keys are tracked separately", func(t *testing.T) {
		limiter := NewRateLimiter(2, 1*time.Minute, logger)
		defer limiter.Stop()

		assert.True(t, allow(t, limiter, "key1"))
		assert.True(t, allow(t, limiter, "key1"))
		assert.False(t, allow(t, limiter, "key1"), "key1 over limit")

		assert.True(t, allow(t, limiter, "key2"))
		assert.True(t, allow(t, limiter, "key2"))
		assert.False(t, allow(t, limiter, "key2"), "key2 over limit")
	})

	t.Run("Window resets after it expires", func(t *testing.T) {
		now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		limiter := newRateLimiter(2, time.Minute, logger, func() time.Time { return now })
		defer limiter.Stop()

		assert.True(t, allow(t, limiter, "k"))
		assert.True(t, allow(t, limiter, "k"))
		assert.False(t, allow(t, limiter, "k"), "should be rate limited")

		now = now.Add(59 * time.Second)
		assert.False(t, allow(t, limiter, "k"), "window not over yet")

		now = now.Add(time.Second)
		assert.True(t, allow(t, limiter, "k"), "new window")
	})

	t.Run("Stop is idempotent", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute, logger)
		limiter.Stop()
		assert.NotPanics(t, limiter.Stop)
	})
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func TestRateLimitMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	})

	send := func(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	t.Run("Requests over limit are blocked with 429", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute, logger)
		defer limiter.Stop()
		handler := RateLimitMiddleware(limiter, nil, logger)(ok)

		for i := 0; i < 3; i++ {
			w := send(handler, "192.168.1.2:12345")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "success", w.Body.String())
		}

		w := send(handler, "192.168.1.2:12345")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "rate limit exceeded")
	})

	t.Run("Same host with different ports shares a limit", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute, logger)
		defer limiter.Stop()
		handler := RateLimitMiddleware(limiter, nil, logger)(ok)

		assert.Equal(t, http.StatusOK, send(handler, "192.168.1.3:1000").Code)
		assert.Equal(t, http.StatusTooManyRequests, send(handler, "192.168.1.3:1001").Code)
		assert.Equal(t, http.StatusOK, send(handler, "192.168.1.4:1000").Code)
	})

	t.Run("Rotating X-Forwarded-For from one socket is still limited", func(t *testing.T) {
		limiter := NewRateLimiter(2, time.Minute, logger)
		defer limiter.Stop()
		handler := RateLimitMiddleware(limiter, nil, logger)(ok)

		codes := make([]int, 0, 6)
		for i := 0; i < 6; i++ {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			req.RemoteAddr = "203.0.113.7:40000"
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
			req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i+1))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			codes = append(codes, w.Code)
		}

		assert.Equal(t, []int{
			http.StatusOK, http.StatusOK,
			http.StatusTooManyRequests, http.StatusTooManyRequests,
			http.StatusTooManyRequests, http.StatusTooManyRequests,
		}, codes)
	})

	t.Run("Trusted proxy forwards distinct clients", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute, logger)
		defer limiter.Stop()
		proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
		require.NoError(t, err)
		handler := RateLimitMiddleware(limiter, proxies, logger)(ok)

		forwarded := func(client string) int {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			req.RemoteAddr = "10.0.0.1:5000"
			req.Header.Set("X-Forwarded-For", client)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			return w.Code
		}

		assert.Equal(t, http.StatusOK, forwarded("198.51.100.1"))
		assert.Equal(t, http.StatusOK, forwarded("198.51.100.2"))
		assert.Equal(t, http.StatusTooManyRequests, forwarded("198.51.100.1"))
	})

	t.Run("Limiter failure lets the request through", func(t *testing.T) {
		handler := RateLimitMiddleware(failingLimiter{}, nil, logger)(ok)
		assert.Equal(t, http.StatusOK, send(handler, "192.168.1.5:1").Code)
	})
}

func TestRateLimiter_CleanupOldBuckets(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newRateLimiter(10, time.Minute, logger, func() time.Time { return now })
	defer limiter.Stop()

	allow(t, limiter, "192.168.1.1")
	allow(t, limiter, "192.168.1.2")

	now = now.Add(90 * time.Second)
	allow(t, limiter, "192.168.1.3")

	now = now.Add(40 * time.Second)
	assert.Equal(t, 2, limiter.cleanupOldBuckets(), "buckets idle for more than two windows are evicted")

	limiter.mu.Lock()
	_, kept := limiter.buckets["192.168.1.3"]
	bucketCount := len(limiter.buckets)
	limiter.mu.Unlock()
	assert.Equal(t, 1, bucketCount)
	assert.True(t, kept)
}

func TestRateLimitMiddleware_MasksCodesInLog(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	limiter := NewRateLimiter(0, time.Minute, logger)
	defer limiter.Stop()
	handler := RateLimitMiddleware(limiter, nil, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/email/verify/secret-code", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, logBuf.String(), "/auth/email/verify/***")
	assert.NotContains(t, logBuf.String(), "secret-code")
}

func TestRateLimitMiddleware_LogsExceededRequests(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	limiter := NewRateLimiter(1, time.Minute, logger)
	defer limiter.Stop()
	handler := RateLimitMiddleware(limiter, nil, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if i == 1 {
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
		}
	}

	logOutput := logBuf.String()
	assert.Contains(t, logOutput, "Rate limit exceeded")
	assert.Contains(t, logOutput, "192.168.1.1")
	assert.Contains(t, logOutput, "/auth/login")
	assert.Contains(t, logOutput, "POST")
}
