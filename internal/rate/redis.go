package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldCount = "count"
	fieldLast  = "last"
)

// RedisBackend stores each counter as a hash {count, last} with a retention
// TTL refreshed on every failure.
type RedisBackend struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisBackend creates a backend on the given client. prefix namespaces
// every key, e.g. "authflow:".
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	return &RedisBackend{redis: client, prefix: prefix}
}

// Increment implements Backend.
func (b *RedisBackend) Increment(ctx context.Context, key string, at time.Time, ttl time.Duration) (Attempt, error) {
	k := b.prefix + key

	var incr *redis.IntCmd
	_, err := b.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, k, fieldCount, 1)
		pipe.HSet(ctx, k, fieldLast, at.UnixMilli())
		if ttl > 0 {
			pipe.PExpire(ctx, k, ttl)
		}
		return nil
	})
	if err != nil {
		return Attempt{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return Attempt{Count: int(incr.Val()), Last: time.UnixMilli(at.UnixMilli())}, nil
}

// Get implements Backend.
func (b *RedisBackend) Get(ctx context.Context, key string) (Attempt, bool, error) {
	fields, err := b.redis.HGetAll(ctx, b.prefix+key).Result()
	if err != nil {
		return Attempt{}, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return Attempt{}, false, nil
	}

	count, err := strconv.Atoi(fields[fieldCount])
	if err != nil {
		return Attempt{}, false, fmt.Errorf("rate: corrupt count for %q: %w", key, err)
	}
	lastMS, err := strconv.ParseInt(fields[fieldLast], 10, 64)
	if err != nil {
		return Attempt{}, false, fmt.Errorf("rate: corrupt timestamp for %q: %w", key, err)
	}

	return Attempt{Count: count, Last: time.UnixMilli(lastMS)}, true, nil
}

// Delete implements Backend.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.redis.Del(ctx, b.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
