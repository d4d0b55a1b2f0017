// Package driver defines the cache client contract shared by every backend,
// plus the health-event plumbing the facade and the rate limiter subscribe to.
//
// Implementations fall into two classes: remote drivers that talk to a shared
// store over the network and may observe their connection die, and local
// drivers (Null, ristretto) that can never close. IsClosed is the only health
// signal the facade acts on; events exist so consumers outside the facade can
// react to health edges without polling.
package driver

import (
	"context"
	"time"
)

// KeepTTL, when passed as the ttl argument of Put or PutMany, updates the
// value while leaving the key's current expiration untouched.
const KeepTTL = time.Duration(-1)

// ComputeFunc produces the value to cache on a Remember miss.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Driver is the capability contract every cache backend implements.
// Network-facing methods take a context and may fail; local drivers ignore
// the context and never return transport errors.
type Driver interface {
	// Client exposes the underlying store client, e.g. a
	// goredis.UniversalClient for the redis driver. Local drivers return nil.
	Client() any

	// IsClosed reports whether the driver observed a fatal connection error
	// and must be replaced. Local drivers always return false.
	IsClosed() bool

	Prefix() string
	SetPrefix(prefix string)

	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value under key. ttl == 0 means no expiry; KeepTTL preserves
	// the existing expiry. ok=false means nothing was written.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// TTL reports the remaining time to live of key. Zero for missing keys
	// and keys without expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// GetMany returns values in key order; misses are nil entries.
	GetMany(ctx context.Context, keys ...string) ([][]byte, error)

	// PutMany stores all pairs under a common ttl.
	PutMany(ctx context.Context, pairs map[string][]byte, ttl time.Duration) (bool, error)

	// Forget deletes keys. Keys are taken verbatim, without the prefix.
	Forget(ctx context.Context, keys ...string) (bool, error)

	// ForgetByPattern deletes every key matching the glob pattern; matching
	// zero keys is success. Enumeration is O(keyspace) on remote stores and
	// blocks the store while it scans, so keep this off hot paths.
	ForgetByPattern(ctx context.Context, pattern string) (bool, error)

	// Remember returns the cached value for key, or runs compute, stores the
	// result with ttl and returns it. Two concurrent misses may both compute;
	// the last write wins.
	Remember(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) ([]byte, error)

	// RememberForever is Remember without an expiry.
	RememberForever(ctx context.Context, key string, compute ComputeFunc) ([]byte, error)

	// Flush clears the backing store.
	Flush(ctx context.Context) (bool, error)

	// Quit releases the underlying client. Safe to call more than once.
	Quit(ctx context.Context) error

	// Subscribe registers a health-event listener. Listeners run inline with
	// the connection path that produced the event and must be cheap; wrap
	// slow ones with AsyncListener.
	Subscribe(l Listener)
}
