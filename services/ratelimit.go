package services

import (
	"context"
	"fmt"
	"time"

	"timetable-lookup/config"

	"github.com/redis/go-redis/v9"
)

// RateInfo - состояние лимитера для заголовков ответа
type RateInfo struct {
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration // Только для отклонённых запросов
}

// Limiter считает запросы по ключу в фиксированных окнах.
// Реализации должны быть безопасны для конкурентного доступа
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, RateInfo, error)
	Close() error
}

// NewLimiter возвращает лимитер на Redis, если задан адрес, иначе в памяти
func NewLimiter(cfg *config.Config) (Limiter, error) {
	if cfg.RedisAddr == "" {
		return NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisLimiter(rdb, cfg.RateLimitMax, cfg.RateLimitWindow), nil
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter считает запросы в памяти процесса, окно фиксированное
type MemoryLimiter struct {
	cache  *CacheService
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		cache:  NewCacheService(window, window),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, RateInfo, error) {
	now := l.now()

	value := l.cache.Update(key, func(value interface{}, found bool) (interface{}, time.Duration) {
		win, _ := value.(rateWindow)
		if !found || !now.Before(win.resetAt) {
			win = rateWindow{resetAt: now.Add(l.window)}
		}
		win.count++
		return win, win.resetAt.Sub(now)
	})
	win := value.(rateWindow)

	return rateDecision(l.limit, win.count, win.resetAt, now)
}

func (l *MemoryLimiter) Close() error {
	l.cache.Flush()
	return nil
}

const rateKeyPrefix = "rate_limit:"

type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(rdb *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, RateInfo, error) {
	key = rateKeyPrefix + key

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return true, RateInfo{}, fmt.Errorf("failed to increment rate counter: %w", err)
	}
	if count == 1 {
		if err := l.rdb.PExpire(ctx, key, l.window).Err(); err != nil {
			return true, RateInfo{}, fmt.Errorf("failed to set rate window: %w", err)
		}
	}

	ttl, err := l.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return true, RateInfo{}, fmt.Errorf("failed to read rate window: %w", err)
	}
	if ttl < 0 {
		// Счётчик остался без TTL: начинаем окно заново
		if err := l.rdb.PExpire(ctx, key, l.window).Err(); err != nil {
			return true, RateInfo{}, fmt.Errorf("failed to restore rate window: %w", err)
		}
		ttl = l.window
	}

	now := l.now()
	return rateDecision(l.limit, int(count), now.Add(ttl), now)
}

func (l *RedisLimiter) Close() error {
	return l.rdb.Close()
}

func rateDecision(limit, count int, resetAt, now time.Time) (bool, RateInfo, error) {
	info := RateInfo{
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   resetAt,
	}
	if info.Remaining < 0 {
		info.Remaining = 0
	}

	if count > limit {
		info.RetryAfter = resetAt.Sub(now)
		return false, info, nil
	}
	return true, info, nil
}
