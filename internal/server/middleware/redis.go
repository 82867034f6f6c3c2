package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter - фиксированное окно в Redis, общее для всех экземпляров сервера
type RedisLimiter struct {
	client *redis.Client
	prefix string
	rate   int
	window time.Duration
}

// NewRedisLimiter создает limiter на rate запросов за window
func NewRedisLimiter(client *redis.Client, rate int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: "authkeeper:ratelimit:",
		rate:   rate,
		window: window,
	}
}

// Allow увеличивает счетчик ключа; окно начинается с первого запроса
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.prefix + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("incr rate limit counter: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("expire rate limit counter: %w", err)
		}
	}

	return count <= int64(l.rate), nil
}
