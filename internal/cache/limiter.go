// Package cache holds the request throttling backends: a Redis one shared by
// every instance and an in-process fallback.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether another attempt identified by key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisConnection describes how to reach Redis.
type RedisConnection struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection with PING.
func NewRedisClient(ctx context.Context, cfg RedisConnection) (*redis.Client, error) {
	const op = "cache.NewRedisClient"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return db, nil
}

// RedisLimiter is a fixed-window counter: at most limit attempts per key in
// every window.
type RedisLimiter struct {
	db     *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisLimiter creates a limiter whose keys live under prefix.
func NewRedisLimiter(db *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{db: db, prefix: prefix, limit: int64(limit), window: window}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	const op = "cache.RedisLimiter.Allow"
	k := l.prefix + key

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttl = pipe.TTL(ctx, k)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	// Any counter without a TTL gets one, including one whose earlier
	// EXPIRE failed.
	if ttl.Val() < 0 {
		if err := l.db.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
	}
	return incr.Val() <= l.limit, nil
}

const localPruneThreshold = 10_000

// LocalLimiter is a token bucket per key held in process memory. It refills
// at limit tokens per window with a burst of limit.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

// NewLocalLimiter creates an in-process limiter.
func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
	}
}

// Allow implements Limiter.
func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= localPruneThreshold {
			l.prune()
		}
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[key] = lim
	}
	return lim.Allow(), nil
}

// prune forgets keys whose bucket has refilled completely.
func (l *LocalLimiter) prune() {
	for key, lim := range l.limiters {
		if lim.Tokens() >= float64(l.burst) {
			delete(l.limiters, key)
		}
	}
}
