// Package ratelimit 限流器：Redis 分布式限流（GCRA）与进程内令牌桶
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimiter defines the interface for rate limiting
type RateLimiter interface {
	// Allow checks if the request is allowed for the given key and limit
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
}

// Limit defines the rate limit rule
type Limit struct {
	Rate   int
	Period time.Duration
	Burst  int
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAfter time.Duration
	RetryAfter time.Duration
}

// RedisRateLimiter implements RateLimiter using Redis
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
}

// NewRedisRateLimiter creates a new RedisRateLimiter
func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(rdb),
	}
}

// Allow checks if the request is allowed
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	res, err := r.limiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit.Rate,
		Period: limit.Period,
		Burst:  limit.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		ResetAfter: res.ResetAfter,
		RetryAfter: res.RetryAfter,
	}, nil
}

// LocalRateLimiter 进程内按 key 的令牌桶，未配置 Redis 时使用
type LocalRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

// NewLocalRateLimiter 创建进程内限流器
func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		now:      time.Now,
	}
}

// Allow 实现 RateLimiter，同一 key 首次使用的 limit 生效
func (l *LocalRateLimiter) Allow(_ context.Context, key string, limit Limit) (*Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return nil, fmt.Errorf("invalid rate limit: rate=%d period=%s", limit.Rate, limit.Period)
	}
	burst := max(limit.Burst, 1)
	every := rate.Every(limit.Period / time.Duration(limit.Rate))

	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(every, burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()

	now := l.now()
	r := lim.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
		return &Result{Allowed: false, RetryAfter: delay, ResetAfter: delay}, nil
	}

	remaining := int(lim.TokensAt(now))
	return &Result{
		Allowed:    true,
		Remaining:  max(remaining, 0),
		ResetAfter: time.Duration(float64(burst-remaining) / float64(every) * float64(time.Second)),
	}, nil
}
