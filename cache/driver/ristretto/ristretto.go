// Package ristretto provides an in-process cache driver for single-node
// deployments and tests. It keeps a key index on the side so glob
// invalidation and flushes behave like the remote driver's; entries evicted
// by ristretto may linger in the index until the next Forget touches them,
// which is harmless.
package ristretto

import (
	"context"
	"errors"
	"path"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/harmonic-studioz/pouchfi-api/cache/driver"
)

type Config struct {
	NumCounters int64 // 0 => 100_000
	MaxCost     int64 // 0 => 64 MiB
	BufferItems int64 // 0 => 64
}

type Driver struct {
	driver.Notifier

	c *rc.Cache

	pmu    sync.RWMutex
	prefix string

	kmu  sync.Mutex
	keys map[string]struct{}
}

var _ driver.Driver = (*Driver)(nil)

func New(prefix string, cfg Config) (*Driver, error) {
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = 100_000
	}
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = 64 << 20
	}
	if cfg.BufferItems <= 0 {
		cfg.BufferItems = 64
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &Driver{c: c, prefix: prefix, keys: make(map[string]struct{})}, nil
}

func (d *Driver) Client() any    { return nil }
func (d *Driver) IsClosed() bool { return false }

func (d *Driver) Prefix() string {
	d.pmu.RLock()
	defer d.pmu.RUnlock()
	return d.prefix
}

func (d *Driver) SetPrefix(prefix string) {
	d.pmu.Lock()
	d.prefix = prefix
	d.pmu.Unlock()
}

func (d *Driver) key(k string) string { return d.Prefix() + k }

func (d *Driver) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := d.c.Get(d.key(key))
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// unexpected entry shape; drop it
		d.c.Del(d.key(key))
		return nil, false, nil
	}
	return b, true, nil
}

func (d *Driver) Put(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	k := d.key(key)
	if ttl < 0 {
		// KeepTTL: carry over whatever remains on the current entry
		remaining, ok := d.c.GetTTL(k)
		if !ok {
			remaining = 0
		}
		ttl = remaining
	}
	ok := d.c.SetWithTTL(k, value, int64(len(value)), ttl)
	if ok {
		// make the write visible before returning; the driver contract is
		// read-your-write within a request
		d.c.Wait()
		d.index(k)
	}
	return ok, nil
}

func (d *Driver) TTL(_ context.Context, key string) (time.Duration, error) {
	ttl, ok := d.c.GetTTL(d.key(key))
	if !ok {
		return 0, nil
	}
	return ttl, nil
}

func (d *Driver) GetMany(ctx context.Context, keys ...string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		v, ok, _ := d.Get(ctx, k)
		if ok {
			out[i] = v
		}
	}
	return out, nil
}

func (d *Driver) PutMany(ctx context.Context, pairs map[string][]byte, ttl time.Duration) (bool, error) {
	all := true
	for k, v := range pairs {
		ok, _ := d.Put(ctx, k, v, ttl)
		all = all && ok
	}
	return all, nil
}

// Forget takes raw storage keys, unprefixed, like the remote driver.
func (d *Driver) Forget(_ context.Context, keys ...string) (bool, error) {
	for _, k := range keys {
		d.c.Del(k)
		d.unindex(k)
	}
	return true, nil
}

func (d *Driver) ForgetByPattern(ctx context.Context, pattern string) (bool, error) {
	d.kmu.Lock()
	var matched []string
	for k := range d.keys {
		ok, err := path.Match(pattern, k)
		if err != nil {
			d.kmu.Unlock()
			return false, errors.New("ristretto: bad pattern " + pattern)
		}
		if ok {
			matched = append(matched, k)
		}
	}
	d.kmu.Unlock()
	if len(matched) == 0 {
		return true, nil
	}
	return d.Forget(ctx, matched...)
}

func (d *Driver) Remember(ctx context.Context, key string, ttl time.Duration, compute driver.ComputeFunc) ([]byte, error) {
	if v, ok, err := d.Get(ctx, key); err != nil {
		return nil, err
	} else if ok {
		return v, nil
	}
	v, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := d.Put(ctx, key, v, ttl); err != nil {
		return nil, err
	}
	return v, nil
}

func (d *Driver) RememberForever(ctx context.Context, key string, compute driver.ComputeFunc) ([]byte, error) {
	return d.Remember(ctx, key, 0, compute)
}

func (d *Driver) Flush(context.Context) (bool, error) {
	d.c.Clear()
	d.kmu.Lock()
	d.keys = make(map[string]struct{})
	d.kmu.Unlock()
	return true, nil
}

func (d *Driver) Quit(context.Context) error {
	d.c.Close()
	return nil
}

func (d *Driver) index(k string) {
	d.kmu.Lock()
	d.keys[k] = struct{}{}
	d.kmu.Unlock()
}

func (d *Driver) unindex(k string) {
	d.kmu.Lock()
	delete(d.keys, k)
	d.kmu.Unlock()
}
