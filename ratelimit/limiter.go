// Package ratelimit implements the per-identity fixed-window limiter whose
// backing store follows the health of the shared cache connection: an
// in-memory store while the remote store is down, a distributed redis store
// while it is up.
//
// The swap is edge-triggered and not state-preserving: buckets tracked by
// the store being replaced are not migrated, so in-flight counters reset on
// a swap. Availability wins over precision here.
package ratelimit

import (
	"context"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/harmonic-studioz/pouchfi-api/cache"
	"github.com/harmonic-studioz/pouchfi-api/cache/driver"
)

// Config is one limiter policy.
type Config struct {
	// Points is the budget per window. 0 => 10.
	Points int
	// Duration is the window. 0 => 1s.
	Duration time.Duration
	// BlockDuration is the cooldown applied once the budget is exhausted.
	// 0 => 1m.
	BlockDuration time.Duration
	// Code tags 429 bodies, e.g. "secure_limit". Empty => "normal_limit".
	Code string
}

func (c Config) withDefaults() Config {
	if c.Points <= 0 {
		c.Points = 10
	}
	if c.Duration <= 0 {
		c.Duration = time.Second
	}
	if c.BlockDuration <= 0 {
		c.BlockDuration = time.Minute
	}
	if c.Code == "" {
		c.Code = "normal_limit"
	}
	return c
}

// Result reports the outcome of one Consume.
type Result struct {
	Allowed    bool
	Remaining  int64
	Consumed   int64
	RetryAfter time.Duration // until the window resets, or the block lifts
}

// Store tracks consumption buckets per identity.
type Store interface {
	Consume(ctx context.Context, key string, cfg Config) (Result, error)
	Close()
}

// RemoteStoreFunc builds the distributed store from whatever client the
// cache facade currently exposes. Returning nil declines the swap.
type RemoteStoreFunc func(client any) Store

// Options configure a Limiter beyond its policy.
type Options struct {
	// Logger; nil disables logging.
	Logger cache.Logger
	// RemoteStore overrides how the distributed store is built on swap.
	// Nil uses a redis store over the facade's client.
	RemoteStore RemoteStoreFunc
}

// Limiter consumes one point per request from the bucket of a composite
// identity. It starts on the in-memory store; Bind moves it between memory
// and the distributed store as the cache connection degrades and recovers.
type Limiter struct {
	cfg    Config
	log    cache.Logger
	remote RemoteStoreFunc

	mu     sync.RWMutex
	store  Store
	memory Store
}

func New(cfg Config, opts Options) *Limiter {
	mem := NewMemoryStore()
	l := &Limiter{
		cfg:    cfg.withDefaults(),
		log:    opts.Logger,
		remote: opts.RemoteStore,
		store:  mem,
		memory: mem,
	}
	if l.log == nil {
		l.log = cache.NopLogger{}
	}
	if l.remote == nil {
		l.remote = defaultRemote
	}
	return l
}

// Secure is the tight policy for sensitive endpoints: login, password reset.
func Secure(opts Options) *Limiter {
	return New(Config{
		Points:        30,
		Duration:      15 * time.Minute,
		BlockDuration: time.Minute,
		Code:          "secure_limit",
	}, opts)
}

// Normal is the loose policy for general traffic.
func Normal(opts Options) *Limiter {
	return New(Config{
		Points:        1000,
		Duration:      10 * time.Minute,
		BlockDuration: time.Minute,
		Code:          "normal_limit",
	}, opts)
}

func defaultRemote(client any) Store {
	rdb, ok := client.(goredis.UniversalClient)
	if !ok || rdb == nil {
		return nil
	}
	return NewRedisStore(rdb)
}

// Bind subscribes the limiter to the facade's health events: ready swaps
// all future consumes onto the distributed store, error swaps back to
// memory. Swap failures are swallowed; the limiter always has a store.
func (l *Limiter) Bind(c *cache.Cache) {
	c.Subscribe(func(e driver.Event, _ error) {
		switch e {
		case driver.EventReady:
			l.promote(c.Client().Client())
		case driver.EventError:
			l.demote()
		}
	})
}

func (l *Limiter) promote(client any) {
	s := l.remote(client)
	if s == nil {
		l.log.Warn("ratelimit: no usable remote client, staying on memory store", nil)
		return
	}
	l.swap(s)
	l.log.Info("ratelimit: switched to distributed store", nil)
}

func (l *Limiter) demote() {
	l.swap(l.memory)
	l.log.Info("ratelimit: switched to memory store", nil)
}

func (l *Limiter) swap(s Store) {
	l.mu.Lock()
	old := l.store
	l.store = s
	l.mu.Unlock()
	if old != l.memory && old != s {
		old.Close()
	}
}

// Consume spends one point from identity's bucket.
func (l *Limiter) Consume(ctx context.Context, identity string) (Result, error) {
	l.mu.RLock()
	s := l.store
	l.mu.RUnlock()
	return s.Consume(ctx, identity, l.cfg)
}

func (l *Limiter) Config() Config { return l.cfg }

// Identity builds the composite bucket identity from a client address and a
// route path.
func Identity(clientIP, routePath string) string {
	return clientIP + "_" + routePath
}
