package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"auction-bidgate/internal/domain"

	"github.com/go-redis/redis/v8"
)

// checkScript counts one attempt unless the window is exhausted. The key's PX
// expiry is the window reset. A missing key, or one left without an expiry,
// starts a fresh window at zero before the quota is compared.
// Returns {admitted, pttl}.
const checkScript = `
    local max = tonumber(ARGV[1])
    local ttl = redis.call('PTTL', KEYS[1])
    if ttl < 0 then
        redis.call('SET', KEYS[1], 0, 'PX', ARGV[2])
        ttl = tonumber(ARGV[2])
    end

    local count = tonumber(redis.call('GET', KEYS[1]))
    if count >= max then
        return {0, ttl}
    end

    redis.call('INCR', KEYS[1])
    return {1, ttl}
`

// RedisRateLimiter shares attempt windows between gateway instances.
type RedisRateLimiter struct {
	client    *redis.Client
	script    *redis.Script
	anonymous string
	now       func() time.Time
}

func NewRedisRateLimiter(client *redis.Client, anonymousIdentity string) *RedisRateLimiter {
	if anonymousIdentity == "" {
		anonymousIdentity = "anonymous"
	}
	return &RedisRateLimiter{
		client:    client,
		script:    redis.NewScript(checkScript),
		anonymous: anonymousIdentity,
		now:       time.Now,
	}
}

func (r *RedisRateLimiter) key(action, identity string) string {
	if identity == "" {
		identity = r.anonymous
	}
	return fmt.Sprintf("ratelimit:%s:%s", action, identity)
}

func (r *RedisRateLimiter) Check(ctx context.Context, action, identity string, limit domain.RateLimit) error {
	result, err := r.script.Run(ctx, r.client, []string{r.key(action, identity)},
		limit.MaxAttempts, limit.Window.Milliseconds()).Result()
	if err != nil {
		return err
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return fmt.Errorf("unexpected rate limit script result %v", result)
	}
	admitted, _ := values[0].(int64)
	pttl, _ := values[1].(int64)

	if admitted == 1 {
		return nil
	}
	return &domain.RateLimitError{
		Action:            action,
		RetryAfterSeconds: int(math.Ceil(float64(pttl) / 1000)),
	}
}

func (r *RedisRateLimiter) Remaining(ctx context.Context, action, identity string, maxAttempts int) (int, error) {
	raw, err := r.client.Get(ctx, r.key(action, identity)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return maxAttempts, nil
		}
		return 0, err
	}

	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if left := maxAttempts - count; left > 0 {
		return left, nil
	}
	return 0, nil
}

func (r *RedisRateLimiter) ResetTime(ctx context.Context, action, identity string) (time.Time, bool, error) {
	ttl, err := r.client.PTTL(ctx, r.key(action, identity)).Result()
	if err != nil {
		return time.Time{}, false, err
	}
	// -2 (missing) and -1 (no expiry) come back as negative durations
	if ttl <= 0 {
		return time.Time{}, false, nil
	}
	return r.now().Add(ttl), true, nil
}

func (r *RedisRateLimiter) Reset(ctx context.Context, action, identity string) error {
	return r.client.Del(ctx, r.key(action, identity)).Err()
}
