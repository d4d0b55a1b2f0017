package cache

import (
	"context"
	"time"

	"github.com/harmonic-studioz/pouchfi-api/codec"
)

// Typed is a typed view over a facade: values of V are run through a Codec
// on their way to and from the byte-oriented cache surface.
type Typed[V any] struct {
	c  *Cache
	cd codec.Codec[V]
}

func NewTyped[V any](c *Cache, cd codec.Codec[V]) Typed[V] {
	return Typed[V]{c: c, cd: cd}
}

func (t Typed[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	b, ok, err := t.c.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := t.cd.Decode(b)
	if err != nil {
		// corrupt entry; drop it and report a miss
		_, _ = t.c.Forget(ctx, t.c.Prefix()+key)
		return zero, false, nil
	}
	return v, true, nil
}

func (t Typed[V]) Put(ctx context.Context, key string, v V, ttl time.Duration) (bool, error) {
	b, err := t.cd.Encode(v)
	if err != nil {
		return false, err
	}
	return t.c.Put(ctx, key, b, ttl)
}

func (t Typed[V]) Remember(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) (V, error)) (V, error) {
	var zero V
	b, err := t.c.Remember(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return t.cd.Encode(v)
	})
	if err != nil {
		return zero, err
	}
	return t.cd.Decode(b)
}

func (t Typed[V]) RememberForever(ctx context.Context, key string, compute func(ctx context.Context) (V, error)) (V, error) {
	return t.Remember(ctx, key, 0, compute)
}
