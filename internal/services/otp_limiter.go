package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const (
	// OTPMaxRequests is how many codes a phone may request per window.
	OTPMaxRequests = 3
	// OTPWindow is the fixed window anchored at the first request.
	OTPWindow = 15 * time.Minute
)

// LimitResult describes the outcome of one counted request.
type LimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// OTPLimiter counts OTP requests per phone in a fixed window. Rejected
// requests never move the window.
type OTPLimiter interface {
	Hit(ctx context.Context, phone string) (LimitResult, error)
}

type otpWindow struct {
	start time.Time
	count int
}

// MemoryLimiter keeps counters in process memory. Counters are not shared
// between instances; use RedisLimiter for that.
type MemoryLimiter struct {
	max    int
	window time.Duration
	store  *cache.Cache
	mu     sync.Mutex
	now    func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:    max,
		window: window,
		store:  cache.New(window, 2*window),
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Hit(_ context.Context, phone string) (LimitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var w *otpWindow
	if v, ok := l.store.Get(phone); ok {
		if existing := v.(*otpWindow); now.Before(existing.start.Add(l.window)) {
			w = existing
		}
	}
	if w == nil {
		w = &otpWindow{start: now}
	}

	left := w.start.Add(l.window).Sub(now)
	if w.count >= l.max {
		return LimitResult{Allowed: false, RetryAfter: atLeastSecond(left)}, nil
	}

	w.count++
	l.store.Set(phone, w, left)
	return LimitResult{Allowed: true, Remaining: l.max - w.count}, nil
}

// RedisLimiter keeps counters in Redis so every instance shares them.
type RedisLimiter struct {
	rdb    redis.Cmdable
	max    int
	window time.Duration
	prefix string
}

func NewRedisLimiter(rdb redis.Cmdable, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, max: max, window: window, prefix: "otp:limit:"}
}

func (l *RedisLimiter) Hit(ctx context.Context, phone string) (LimitResult, error) {
	key := l.prefix + phone

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return LimitResult{}, fmt.Errorf("otp limiter incr: %w", err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return LimitResult{}, fmt.Errorf("otp limiter expire: %w", err)
		}
	}

	if count > int64(l.max) {
		ttl, err := l.rdb.TTL(ctx, key).Result()
		if err != nil {
			return LimitResult{}, fmt.Errorf("otp limiter ttl: %w", err)
		}
		if ttl <= 0 {
			// counter lost its expiry; start a fresh window rather than blocking forever
			if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
				return LimitResult{}, fmt.Errorf("otp limiter expire: %w", err)
			}
			ttl = l.window
		}
		return LimitResult{Allowed: false, RetryAfter: atLeastSecond(ttl)}, nil
	}

	return LimitResult{Allowed: true, Remaining: l.max - int(count)}, nil
}

func atLeastSecond(d time.Duration) time.Duration {
	if d < time.Second {
		return time.Second
	}
	return d.Round(time.Second)
}
