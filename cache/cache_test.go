package cache

import (
	"context"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/harmonic-studioz/pouchfi-api/cache/driver"
)

type fakeEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

// fakeDriver is an in-memory driver.Driver with a controllable closed flag,
// standing in for the remote driver in facade tests.
type fakeDriver struct {
	driver.Notifier

	prefix string
	closed bool
	m      map[string]fakeEntry

	gets     int
	puts     int
	computes int

	// rememberFail makes the next Remember mark the driver closed and fail,
	// simulating a connection death mid-call.
	rememberFail error
}

var _ driver.Driver = (*fakeDriver)(nil)

func newFakeDriver() *fakeDriver {
	return &fakeDriver{m: make(map[string]fakeEntry)}
}

func (d *fakeDriver) Client() any             { return d }
func (d *fakeDriver) IsClosed() bool          { return d.closed }
func (d *fakeDriver) Prefix() string          { return d.prefix }
func (d *fakeDriver) SetPrefix(prefix string) { d.prefix = prefix }

func (d *fakeDriver) Get(_ context.Context, key string) ([]byte, bool, error) {
	d.gets++
	e, ok := d.m[d.prefix+key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(d.m, d.prefix+key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (d *fakeDriver) Put(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	d.puts++
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	d.m[d.prefix+key] = fakeEntry{v: value, exp: exp}
	return true, nil
}

func (d *fakeDriver) TTL(_ context.Context, key string) (time.Duration, error) {
	e, ok := d.m[d.prefix+key]
	if !ok || e.exp.IsZero() {
		return 0, nil
	}
	return time.Until(e.exp), nil
}

func (d *fakeDriver) GetMany(ctx context.Context, keys ...string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		v, ok, _ := d.Get(ctx, k)
		if ok {
			out[i] = v
		}
	}
	return out, nil
}

func (d *fakeDriver) PutMany(ctx context.Context, pairs map[string][]byte, ttl time.Duration) (bool, error) {
	for k, v := range pairs {
		if _, err := d.Put(ctx, k, v, ttl); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (d *fakeDriver) Forget(_ context.Context, keys ...string) (bool, error) {
	for _, k := range keys {
		delete(d.m, k)
	}
	return true, nil
}

func (d *fakeDriver) ForgetByPattern(ctx context.Context, pattern string) (bool, error) {
	var matched []string
	for k := range d.m {
		if ok, err := path.Match(pattern, k); err != nil {
			return false, err
		} else if ok {
			matched = append(matched, k)
		}
	}
	return d.Forget(ctx, matched...)
}

func (d *fakeDriver) Remember(ctx context.Context, key string, ttl time.Duration, compute driver.ComputeFunc) ([]byte, error) {
	if d.rememberFail != nil {
		d.closed = true
		return nil, d.rememberFail
	}
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

func (d *fakeDriver) RememberForever(ctx context.Context, key string, compute driver.ComputeFunc) ([]byte, error) {
	return d.Remember(ctx, key, 0, compute)
}

func (d *fakeDriver) Flush(context.Context) (bool, error) {
	d.m = make(map[string]fakeEntry)
	return true, nil
}

func (d *fakeDriver) Quit(context.Context) error { return nil }

// fakeFacade builds a facade on the "fake" driver and exposes the factory's
// construction count plus the most recently built instance.
func fakeFacade(t *testing.T) (*Cache, func() *fakeDriver, func() int) {
	t.Helper()
	var built int
	var last *fakeDriver
	c, err := New(Options{
		Driver: "fake",
		Register: map[string]DriverFactory{
			"fake": func() (driver.Driver, error) {
				built++
				last = newFakeDriver()
				return last, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, func() *fakeDriver { return last }, func() int { return built }
}

func TestUnknownDriverIsFatal(t *testing.T) {
	_, err := New(Options{Driver: "bogus"})
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("want ErrUnknownDriver, got %v", err)
	}
}

func TestNullIsTheDefaultDriver(t *testing.T) {
	ctx := context.Background()
	c, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if ok, err := c.Put(ctx, "k", []byte("v"), 0); err != nil || ok {
		t.Fatalf("null Put = (%v, %v), want (false, nil)", ok, err)
	}
	if _, ok, err := c.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("null Get hit after Put, want miss")
	}

	runs := 0
	for i := 0; i < 2; i++ {
		v, err := c.Remember(ctx, "k", time.Minute, func(context.Context) ([]byte, error) {
			runs++
			return []byte("fresh"), nil
		})
		if err != nil || string(v) != "fresh" {
			t.Fatalf("null Remember = (%q, %v)", v, err)
		}
	}
	if runs != 2 {
		t.Fatalf("null driver must compute every time, got %d runs", runs)
	}
}

func TestReadWriteThroughFake(t *testing.T) {
	ctx := context.Background()
	c, _, _ := fakeFacade(t)

	if ok, err := c.Put(ctx, "a", []byte("1"), time.Minute); err != nil || !ok {
		t.Fatalf("Put = (%v, %v)", ok, err)
	}
	v, ok, err := c.Get(ctx, "a")
	if err != nil || !ok || string(v) != "1" {
		t.Fatalf("Get = (%q, %v, %v)", v, ok, err)
	}

	if _, err := c.PutMany(ctx, map[string][]byte{"b": []byte("2"), "c": []byte("3")}, 0); err != nil {
		t.Fatalf("PutMany: %v", err)
	}
	vals, err := c.GetMany(ctx, "a", "b", "missing")
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if string(vals[0]) != "1" || string(vals[1]) != "2" || vals[2] != nil {
		t.Fatalf("GetMany = %q", vals)
	}
}

func TestForgetByPattern(t *testing.T) {
	ctx := context.Background()
	c, _, _ := fakeFacade(t)

	for _, k := range []string{"blog_1", "blog_2", "user_1"} {
		if _, err := c.Put(ctx, k, []byte("x"), 0); err != nil {
			t.Fatalf("Put %s: %v", k, err)
		}
	}
	if ok, err := c.ForgetByPattern(ctx, "blog_*"); err != nil || !ok {
		t.Fatalf("ForgetByPattern = (%v, %v)", ok, err)
	}
	if _, ok, _ := c.Get(ctx, "blog_1"); ok {
		t.Fatal("blog_1 survived pattern invalidation")
	}
	if _, ok, _ := c.Get(ctx, "user_1"); !ok {
		t.Fatal("user_1 was removed by a non-matching pattern")
	}

	// zero matches is success, not an error
	if ok, err := c.ForgetByPattern(ctx, "nothing_*"); err != nil || !ok {
		t.Fatalf("empty ForgetByPattern = (%v, %v)", ok, err)
	}
}

func TestDegradeToNullIsSticky(t *testing.T) {
	ctx := context.Background()
	c, last, built := fakeFacade(t)

	if ok, _ := c.Put(ctx, "k", []byte("v"), 0); !ok {
		t.Fatal("healthy Put failed")
	}
	d := last()
	getsBefore := d.gets

	d.closed = true

	// every subsequent call behaves like the null driver and never touches
	// the dead instance again
	for i := 0; i < 3; i++ {
		if _, ok, err := c.Get(ctx, "k"); err != nil || ok {
			t.Fatalf("degraded Get = (%v, %v), want miss", ok, err)
		}
		if ok, err := c.Put(ctx, "k2", []byte("x"), 0); err != nil || ok {
			t.Fatalf("degraded Put = (%v, %v), want (false, nil)", ok, err)
		}
	}
	if d.gets != getsBefore {
		t.Fatalf("closed driver received %d extra gets", d.gets-getsBefore)
	}
	if built() != 1 {
		t.Fatalf("degrade alone must not rebuild the driver, built=%d", built())
	}

	// re-selecting the name constructs a fresh instance
	if err := c.Use("fake"); err != nil {
		t.Fatalf("Use: %v", err)
	}
	if built() != 2 {
		t.Fatalf("Use after eviction must rebuild, built=%d", built())
	}
	if ok, _ := c.Put(ctx, "k", []byte("v2"), 0); !ok {
		t.Fatal("Put after recovery failed")
	}
	if v, ok, _ := c.Get(ctx, "k"); !ok || string(v) != "v2" {
		t.Fatalf("Get after recovery = (%q, %v)", v, ok)
	}
}

func TestRememberComputesOnceThenCaches(t *testing.T) {
	ctx := context.Background()
	c, _, _ := fakeFacade(t)

	runs := 0
	compute := func(context.Context) ([]byte, error) {
		runs++
		return []byte("value"), nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.Remember(ctx, "memo", time.Minute, compute)
		if err != nil || string(v) != "value" {
			t.Fatalf("Remember = (%q, %v)", v, err)
		}
	}
	if runs != 1 {
		t.Fatalf("compute ran %d times, want 1", runs)
	}
}

func TestRememberFallsBackToComputeWhenDriverDies(t *testing.T) {
	ctx := context.Background()
	c, last, _ := fakeFacade(t)

	last().rememberFail = errors.New("i/o timeout")

	v, err := c.Remember(ctx, "memo", time.Minute, func(context.Context) ([]byte, error) {
		return []byte("direct"), nil
	})
	if err != nil {
		t.Fatalf("Remember must not surface the driver error, got %v", err)
	}
	if string(v) != "direct" {
		t.Fatalf("Remember = %q, want compute result", v)
	}
}

func TestEventForwarding(t *testing.T) {
	c, last, _ := fakeFacade(t)

	var events []driver.Event
	var lastErr error
	c.Subscribe(func(e driver.Event, err error) {
		events = append(events, e)
		if err != nil {
			lastErr = err
		}
	})

	last().Emit(driver.EventConnect, nil)
	last().Emit(driver.EventReady, nil)
	boom := errors.New("connection refused")
	last().Emit(driver.EventError, boom)

	want := []driver.Event{driver.EventConnect, driver.EventReady, driver.EventError}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event[%d] = %v, want %v", i, events[i], want[i])
		}
	}
	if !errors.Is(lastErr, boom) {
		t.Fatalf("error event carried %v", lastErr)
	}
}

func TestGenerateKeyIsDeterministic(t *testing.T) {
	type filter struct {
		Status string
		Page   int
	}

	a, err := GenerateKey(filter{Status: "published", Page: 2})
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	b, err := GenerateKey(filter{Status: "published", Page: 2})
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if a != b {
		t.Fatalf("same source produced different keys: %s vs %s", a, b)
	}

	other, err := GenerateKey(filter{Status: "draft", Page: 2})
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if a == other {
		t.Fatal("different sources produced the same key")
	}
}
