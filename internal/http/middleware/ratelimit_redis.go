package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"task_webapp/internal/domain"
	"task_webapp/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// RedisLimiter holds the Redis client shared by rate limit middleware. A
// limiter without a client is disabled.
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter connects to Redis at addr. An empty addr or a failed ping
// yields a disabled limiter so the server stays available.
func NewRedisLimiter(addr, password string, db int) *RedisLimiter {
	if addr == "" {
		return &RedisLimiter{}
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, rate limiting in memory", "addr", addr, "error", err)
		_ = client.Close()
		return &RedisLimiter{}
	}
	return &RedisLimiter{client: client}
}

// Enabled reports whether Redis is in use.
func (l *RedisLimiter) Enabled() bool {
	return l != nil && l.client != nil
}

func (l *RedisLimiter) Close() error {
	if !l.Enabled() {
		return nil
	}
	return l.client.Close()
}

// RateLimit uses the Redis limiter when enabled and an in-memory limiter
// otherwise.
func RateLimit(l *RedisLimiter, maxRequests int, window time.Duration) gin.HandlerFunc {
	if l.Enabled() {
		return l.Middleware(maxRequests, window)
	}
	return SimpleRateLimit(maxRequests, window)
}

// Middleware implements a fixed-window rate limiter using Redis INCR/EXPIRE.
// key format: rl:<window_seconds>:<identifier>
func (l *RedisLimiter) Middleware(maxRequests int, window time.Duration) gin.HandlerFunc {
	prefix := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":"

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := prefix + c.ClientIP()

		val, err := l.client.Incr(ctx, key).Result()
		if err != nil {
			// fail open
			c.Header("X-RateLimit-Error", "redis-error")
			logger.WithContext(ctx).Warn("rate limiter redis error", "error", err)
			c.Next()
			return
		}

		if val == 1 {
			l.client.Expire(ctx, key, window)
		}

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": domain.MsgRateLimited})
			return
		}

		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

// Ping checks the Redis connection. A disabled limiter has nothing to check.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	if !l.Enabled() {
		return nil
	}
	return l.client.Ping(ctx).Err()
}
