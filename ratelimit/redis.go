package ratelimit

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "rl:"

// RedisStore is the distributed bucket store: one fixed-window counter per
// identity. Count and window TTL travel in a single pipelined round trip;
// the first over-limit consume stretches the key's expiry to the block
// duration.
type RedisStore struct {
	rdb goredis.UniversalClient
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(rdb goredis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Consume(ctx context.Context, key string, cfg Config) (Result, error) {
	k := redisKeyPrefix + key

	pipe := s.rdb.Pipeline()
	incr := pipe.Incr(ctx, k)
	pttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	consumed := incr.Val()
	remaining := pttl.Val()
	if remaining < 0 {
		// INCR created the key without an expiry: fresh window
		remaining = cfg.Duration
		_ = s.rdb.PExpire(ctx, k, cfg.Duration).Err() // next consume repairs on failure
	}

	points := int64(cfg.Points)
	if consumed > points {
		retry := remaining
		if cfg.BlockDuration > 0 && consumed == points+1 {
			if err := s.rdb.PExpire(ctx, k, cfg.BlockDuration).Err(); err == nil {
				retry = cfg.BlockDuration
			}
		}
		return Result{
			Consumed:   consumed,
			RetryAfter: retry,
		}, nil
	}

	return Result{
		Allowed:    true,
		Remaining:  points - consumed,
		Consumed:   consumed,
		RetryAfter: remaining,
	}, nil
}

func (s *RedisStore) Close() {}
