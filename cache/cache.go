package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harmonic-studioz/pouchfi-api/cache/driver"
	driverredis "github.com/harmonic-studioz/pouchfi-api/cache/driver/redis"
	driverristretto "github.com/harmonic-studioz/pouchfi-api/cache/driver/ristretto"
)

// Built-in driver names.
const (
	DriverNull   = "null"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// DriverFactory builds a driver instance. Entries in Options.Register extend
// or override the built-in factories; the registry is keyed by driver name.
type DriverFactory func() (driver.Driver, error)

// Options configure the facade.
type Options struct {
	// Driver selects the backend: "null", "redis", "memory" or a name from
	// Register. Empty selects "null".
	Driver string
	// Prefix is prepended to keys on the read/write paths. Forget and
	// ForgetByPattern take raw keys.
	Prefix string
	// Redis configures the "redis" driver.
	Redis driverredis.Config
	// Memory configures the "memory" driver.
	Memory driverristretto.Config
	// Register adds custom driver factories to the registry.
	Register map[string]DriverFactory
	// Logger; nil disables logging.
	Logger Logger
}

// Cache is the facade. All methods are safe for concurrent use.
type Cache struct {
	opts Options
	log  Logger

	mu        sync.Mutex
	name      string // active driver name
	current   driver.Driver
	instances map[string]driver.Driver

	events driver.Notifier
}

func New(opts Options) (*Cache, error) {
	name := coalesce(opts.Driver, DriverNull)
	c := &Cache{
		opts:      opts,
		log:       coalesce[Logger](opts.Logger, NopLogger{}),
		name:      name,
		instances: make(map[string]driver.Driver),
	}
	if !c.known(name) {
		return nil, fmt.Errorf("cache: %w: %q", ErrUnknownDriver, name)
	}

	// eager construction so configuration errors surface at startup
	c.mu.Lock()
	defer c.mu.Unlock()
	d, err := c.construct(name)
	if err != nil {
		return nil, err
	}
	d.Subscribe(c.forward)
	c.instances[name] = d
	c.current = d
	return c, nil
}

func (c *Cache) known(name string) bool {
	switch name {
	case DriverNull, DriverRedis, DriverMemory:
		return true
	}
	_, ok := c.opts.Register[name]
	return ok
}

func (c *Cache) construct(name string) (driver.Driver, error) {
	if f, ok := c.opts.Register[name]; ok {
		return f()
	}
	switch name {
	case DriverNull:
		return driver.NewNull(), nil
	case DriverRedis:
		return driverredis.New(c.opts.Prefix, c.opts.Redis), nil
	case DriverMemory:
		return driverristretto.New(c.opts.Prefix, c.opts.Memory)
	}
	return nil, fmt.Errorf("cache: %w: %q", ErrUnknownDriver, name)
}

// instance returns the live driver for name, constructing and registering
// one when the registry has no entry. Callers hold c.mu.
func (c *Cache) instance(name string) driver.Driver {
	if d, ok := c.instances[name]; ok {
		return d
	}
	d, err := c.construct(name)
	if err != nil {
		// construction failed at request time; stand in with Null and leave
		// the registry empty so a later selection retries
		c.log.Error("cache: driver construction failed", Fields{"driver": name, "err": err})
		return driver.NewNull()
	}
	d.Subscribe(c.forward)
	c.instances[name] = d
	return d
}

// forward re-broadcasts driver health events to facade subscribers.
func (c *Cache) forward(e driver.Event, err error) {
	if e == driver.EventError {
		c.log.Warn("cache: driver error", Fields{"err": err})
	}
	c.events.Emit(e, err)
}

// Subscribe registers a listener for connect/ready/error events from every
// driver instance the facade creates.
func (c *Cache) Subscribe(l driver.Listener) { c.events.Subscribe(l) }

// Client returns the driver all facade calls delegate to, re-evaluating
// health first. A closed driver is evicted from the registry -- the next
// selection of its name builds a brand-new instance -- and the Null driver
// takes over for this and subsequent calls until Use re-selects something.
func (c *Cache) Client() driver.Driver {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		c.current = c.instance(c.name)
	}
	if c.current.IsClosed() {
		delete(c.instances, c.name)
		c.log.Info("cache: driver closed, degrading to null", Fields{"driver": c.name})
		c.current = c.instance(DriverNull)
	}
	return c.current
}

// Use selects driver name as the active driver. After a degrade this is how
// the facade gets back onto the remote store: the dead instance was evicted,
// so Use builds a fresh one that reconnects on first use.
func (c *Cache) Use(name string) error {
	if !c.known(name) {
		return fmt.Errorf("cache: %w: %q", ErrUnknownDriver, name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
	c.current = c.instance(name)
	return nil
}

func (c *Cache) Prefix() string          { return c.Client().Prefix() }
func (c *Cache) SetPrefix(prefix string) { c.Client().SetPrefix(prefix) }

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.Client().Get(ctx, key)
}

func (c *Cache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return c.Client().Put(ctx, key, value, ttl)
}

func (c *Cache) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.Client().TTL(ctx, key)
}

func (c *Cache) GetMany(ctx context.Context, keys ...string) ([][]byte, error) {
	return c.Client().GetMany(ctx, keys...)
}

func (c *Cache) PutMany(ctx context.Context, pairs map[string][]byte, ttl time.Duration) (bool, error) {
	return c.Client().PutMany(ctx, pairs, ttl)
}

func (c *Cache) Forget(ctx context.Context, keys ...string) (bool, error) {
	return c.Client().Forget(ctx, keys...)
}

func (c *Cache) ForgetByPattern(ctx context.Context, pattern string) (bool, error) {
	return c.Client().ForgetByPattern(ctx, pattern)
}

// Remember returns the cached value for key or computes and stores it. When
// the driver call fails and the driver turns out closed, compute runs
// directly and its value is returned uncached.
func (c *Cache) Remember(ctx context.Context, key string, ttl time.Duration, compute driver.ComputeFunc) ([]byte, error) {
	d := c.Client()
	v, err := d.Remember(ctx, key, ttl, compute)
	if err != nil && d.IsClosed() {
		c.log.Warn("cache: remember failed on closed driver, computing directly", Fields{"key": key, "err": err})
		return compute(ctx)
	}
	return v, err
}

func (c *Cache) RememberForever(ctx context.Context, key string, compute driver.ComputeFunc) ([]byte, error) {
	return c.Remember(ctx, key, 0, compute)
}

func (c *Cache) Flush(ctx context.Context) (bool, error) {
	return c.Client().Flush(ctx)
}

// Quit releases the active driver's client. The facade stays usable; the
// next call degrades or reconnects as usual.
func (c *Cache) Quit(ctx context.Context) error {
	return c.Client().Quit(ctx)
}
