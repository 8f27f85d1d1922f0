package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter decides whether a user may be served right now. It is evaluated once per event.
type Limiter interface {
	Allow(ctx context.Context, userID int64) bool
}

// Unlimited permits every event.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, int64) bool { return true }

// LocalLimiter keeps one token bucket per user in memory: limit events per window, refilled evenly.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*userLimiter
	r        rate.Limit
	b        int
	ttl      time.Duration
	now      func() time.Time
}

type userLimiter struct {
	lim     *rate.Limiter
	lastHit time.Time
}

func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &LocalLimiter{
		limiters: make(map[int64]*userLimiter),
		r:        rate.Every(window / time.Duration(limit)),
		b:        limit,
		ttl:      window,
		now:      time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, userID int64) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	ul, ok := l.limiters[userID]
	if !ok {
		ul = &userLimiter{lim: rate.NewLimiter(l.r, l.b)}
		l.limiters[userID] = ul
	}
	ul.lastHit = now
	return ul.lim.AllowN(now, 1)
}

// Sweep drops buckets idle for longer than one window; such a bucket is full again anyway.
func (l *LocalLimiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, ul := range l.limiters {
		if now.Sub(ul.lastHit) > l.ttl {
			delete(l.limiters, id)
			removed++
		}
	}
	return removed
}

// Len reports how many users currently have a bucket.
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RedisLimiter is a fixed-window counter shared by every bot replica.
// Redis errors fail open.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
	log    *zap.Logger
	now    func() time.Time
}

// NewRedisLimiter connects to url and pings it.
func NewRedisLimiter(ctx context.Context, url string, limit int, window time.Duration, log *zap.Logger) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.ConnMaxIdleTime = 5 * time.Minute

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if limit <= 0 {
		limit = 1
	}
	if window < time.Second {
		window = time.Minute
	}
	return &RedisLimiter{rdb: rdb, limit: int64(limit), window: window, log: log, now: time.Now}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, userID int64) bool {
	slot := l.now().Unix() / int64(l.window/time.Second)
	key := fmt.Sprintf("gptbot:ratelimit:%d:%d", userID, slot)

	pipe := l.rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Warn("rate limit check failed, permitting", zap.Int64("user_id", userID), zap.Error(err))
		return true
	}
	return incr.Val() <= l.limit
}

func (l *RedisLimiter) Close() error {
	return l.rdb.Close()
}
