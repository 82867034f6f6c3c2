package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/iudanet/authkeeper/internal/clock"
	"github.com/iudanet/authkeeper/internal/server/handlers"
)

// Limiter решает, можно ли пропустить очередной запрос с ключом key
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimiter - in-process лимитер: фиксированное окно на ключ.
// Подходит для одного экземпляра сервера; для нескольких используется RedisLimiter.
type RateLimiter struct {
	buckets  map[string]*bucket
	logger   *slog.Logger
	now      clock.Clock
	cleanupC chan struct{}
	stopOnce sync.Once
	rate     int
	window   time.Duration
	mu       sync.Mutex
}

// bucket - счетчик одного ключа в текущем окне
type bucket struct {
	windowStart time.Time
	tokens      int
}

// NewRateLimiter создает новый rate limiter
// rate - максимальное количество запросов в окне window
func NewRateLimiter(rate int, window time.Duration, logger *slog.Logger) *RateLimiter {
	return newRateLimiter(rate, window, logger, clock.System)
}

func newRateLimiter(rate int, window time.Duration, logger *slog.Logger, now clock.Clock) *RateLimiter {
	rl := &RateLimiter{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		window:   window,
		logger:   logger,
		now:      now,
		cleanupC: make(chan struct{}),
	}

	// Запускаем периодическую очистку старых buckets
	go rl.cleanup()

	return rl
}

// cleanup периодически удаляет неактивные buckets для экономии памяти
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := rl.cleanupOldBuckets(); n > 0 {
				rl.logger.Debug("rate limiter buckets evicted", slog.Int("count", n))
			}
		case <-rl.cleanupC:
			return
		}
	}
}

// cleanupOldBuckets удаляет buckets, окно которых закончилось больше window назад
func (rl *RateLimiter) cleanupOldBuckets() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	n := 0
	for key, b := range rl.buckets {
		if now.Sub(b.windowStart) > rl.window*2 {
			delete(rl.buckets, key)
			n++
		}
	}
	return n
}

// Stop останавливает cleanup goroutine; повторный вызов безопасен
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.cleanupC) })
}

// Allow расходует один запрос из окна ключа (обычно IP адреса)
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.windowStart) >= rl.window {
		b = &bucket{tokens: rl.rate, windowStart: now}
		rl.buckets[key] = b
	}

	if b.tokens == 0 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

// RateLimitMiddleware создает middleware для ограничения частоты запросов.
// Ключ - адрес клиента по proxies.ClientIP. Если limiter недоступен, запрос пропускается.
func RateLimitMiddleware(limiter Limiter, proxies TrustedProxies, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := proxies.ClientIP(r)

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.ErrorContext(r.Context(), "Rate limiter unavailable", slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				logger.WarnContext(r.Context(), "Rate limit exceeded",
					slog.String("ip", key),
					slog.String("method", r.Method),
					slog.String("path", sanitizePath(r.URL.Path)),
				)

				handlers.SendError(logger, w, "rate limit exceeded, please try again later", "", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
