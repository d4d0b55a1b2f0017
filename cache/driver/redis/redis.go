// Package redis implements the remote cache driver on top of go-redis.
//
// The driver tracks its own health: connection-refused, closed-client and
// timeout errors observed through client hooks retire the driver (IsClosed
// becomes true) and emit EventError, after which the facade evicts it and
// degrades to the Null driver. A fresh instance reconnects on first use.
package redis

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/harmonic-studioz/pouchfi-api/cache/driver"
)

// Config carries the connection settings for the shared redis instance.
// Every network call is bounded by the timeouts so a dead store surfaces as
// an error instead of a hung request.
type Config struct {
	Host     string
	Port     int
	DB       int
	Password string

	DialTimeout  time.Duration // 0 => 5s
	ReadTimeout  time.Duration // 0 => 3s
	WriteTimeout time.Duration // 0 => 3s
}

func (c Config) addr() string {
	host := c.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := c.Port
	if port == 0 {
		port = 6379
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Driver is the remote cache driver.
type Driver struct {
	driver.Notifier

	rdb    goredis.UniversalClient
	closed atomic.Bool

	pmu    sync.RWMutex
	prefix string
}

var _ driver.Driver = (*Driver)(nil)

func New(prefix string, cfg Config) *Driver {
	d := &Driver{prefix: prefix}

	opt := &goredis.Options{
		Addr:         cfg.addr(),
		DB:           cfg.DB,
		Password:     cfg.Password,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = 5 * time.Second
	}
	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = 3 * time.Second
	}
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = 3 * time.Second
	}
	opt.OnConnect = func(context.Context, *goredis.Conn) error {
		d.closed.Store(false)
		d.Emit(driver.EventConnect, nil)
		d.Emit(driver.EventReady, nil)
		return nil
	}

	client := goredis.NewClient(opt)
	client.AddHook(healthHook{d: d})
	d.rdb = client
	return d
}

// fail retires the driver after a fatal connection error: terminate the
// connection, flag closed, tell subscribers. Only the first failure wins.
func (d *Driver) fail(err error) {
	if d.closed.Swap(true) {
		return
	}
	_ = d.rdb.Close()
	d.Emit(driver.EventError, err)
}

func (d *Driver) Client() any    { return d.rdb }
func (d *Driver) IsClosed() bool { return d.closed.Load() }

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

func (d *Driver) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := d.rdb.Get(ctx, d.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (d *Driver) Put(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	exp := ttl
	if ttl < 0 {
		exp = goredis.KeepTTL
	}
	if err := d.rdb.Set(ctx, d.key(key), value, exp).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Driver) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := d.rdb.TTL(ctx, d.key(key)).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 { // -1 no expiry, -2 missing
		return 0, nil
	}
	return ttl, nil
}

func (d *Driver) GetMany(ctx context.Context, keys ...string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = d.key(k)
	}
	vals, err := d.rdb.MGet(ctx, prefixed...).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		switch t := v.(type) {
		case string:
			out[i] = []byte(t)
		case []byte:
			out[i] = t
		}
	}
	return out, nil
}

// PutMany pipelines one SET per pair; MSET cannot carry a TTL.
func (d *Driver) PutMany(ctx context.Context, pairs map[string][]byte, ttl time.Duration) (bool, error) {
	if len(pairs) == 0 {
		return true, nil
	}
	exp := ttl
	if ttl < 0 {
		exp = goredis.KeepTTL
	}
	pipe := d.rdb.Pipeline()
	for k, v := range pairs {
		pipe.Set(ctx, d.key(k), v, exp)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Driver) Forget(ctx context.Context, keys ...string) (bool, error) {
	if len(keys) == 0 {
		return true, nil
	}
	n, err := d.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ForgetByPattern enumerates with KEYS, which blocks the store while it scans
// the whole keyspace, then issues one batched DEL. The pattern is matched
// against raw keys, unprefixed, like Forget.
func (d *Driver) ForgetByPattern(ctx context.Context, pattern string) (bool, error) {
	keys, err := d.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		return false, err
	}
	if len(keys) == 0 {
		return true, nil
	}
	return d.Forget(ctx, keys...)
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

func (d *Driver) Flush(ctx context.Context) (bool, error) {
	if err := d.rdb.FlushDB(ctx).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Driver) Quit(context.Context) error {
	d.closed.Store(true)
	if err := d.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return err
	}
	return nil
}
