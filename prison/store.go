package prison

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Store is the narrow slice of the shared key-value store the lockout engine
// needs.
type Store interface {
	// Get returns the raw record; ok=false when the key is missing.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// SetTTL writes value with a fresh ttl.
	SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetKeepTTL writes value without touching the key's current expiry.
	SetKeepTTL(ctx context.Context, key string, value []byte) error
	// TTL reports the remaining time to live.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Expire replaces the key's ttl.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// Del removes the key.
	Del(ctx context.Context, key string) error
}

// RedisStore adapts a go-redis client to Store.
type RedisStore struct {
	rdb goredis.UniversalClient
}

var _ Store = (*RedisStore)(nil)

var ErrNilClient = errors.New("prison: nil redis client")

func NewRedisStore(rdb goredis.UniversalClient) (*RedisStore, error) {
	if rdb == nil {
		return nil, ErrNilClient
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) SetKeepTTL(ctx context.Context, key string, value []byte) error {
	return s.rdb.Set(ctx, key, value, goredis.KeepTTL).Err()
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.rdb.Expire(ctx, key, ttl).Err()
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
