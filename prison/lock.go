package prison

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Lock is one identity's view of its lockout state, snapshotted by Cell.
// The snapshot is not re-read: concurrent failed attempts from the same
// identity may under-count, which is accepted (lenient lockout under
// contention).
type Lock interface {
	// Locked reports whether the identity reached the attempt limit.
	Locked() bool

	// Increment records n failed attempts (n <= 0 counts as 1). Incrementing
	// never refreshes the record's TTL.
	Increment(ctx context.Context, n int) error

	// Extend lengthens a locked record's life. The first call only marks the
	// record extended and returns the base TTL; every later call multiplies
	// the remaining TTL by factor (<= 0 means 2), applies it, and returns
	// the new TTL.
	Extend(ctx context.Context, factor int) (time.Duration, error)

	// Free deletes the record.
	Free(ctx context.Context) error
}

// bareLock is the cold-start variant: no record exists yet. Never locked,
// Extend and Free are no-ops, Increment seeds the first record.
type bareLock struct {
	prison *Prison
	key    string
}

var _ Lock = (*bareLock)(nil)

func (l *bareLock) Locked() bool { return false }

// Increment creates the record with a fresh base TTL. The very first failure
// always counts as one.
func (l *bareLock) Increment(ctx context.Context, _ int) error {
	b, err := json.Marshal(record{Count: 1})
	if err != nil {
		return err
	}
	if err := l.prison.store.SetTTL(ctx, l.key, b, l.prison.ttl); err != nil {
		return fmt.Errorf("prison: seed %q: %w", l.key, err)
	}
	return nil
}

func (l *bareLock) Extend(context.Context, int) (time.Duration, error) { return 0, nil }
func (l *bareLock) Free(context.Context) error                         { return nil }

// infoLock is the ongoing variant carrying the decoded record.
type infoLock struct {
	prison *Prison
	key    string
	rec    record
}

var _ Lock = (*infoLock)(nil)

func (l *infoLock) Locked() bool { return l.rec.Lockedout }

// set persists the record with KEEPTTL semantics: mutating count or flags
// must never reset the expiry clock.
func (l *infoLock) set(ctx context.Context) error {
	b, err := json.Marshal(l.rec)
	if err != nil {
		return err
	}
	return l.prison.store.SetKeepTTL(ctx, l.key, b)
}

func (l *infoLock) Increment(ctx context.Context, n int) error {
	if n <= 0 {
		n = 1
	}
	l.rec.Count += n
	if l.rec.Count >= l.prison.limit {
		l.rec.Lockedout = true
	}
	if err := l.set(ctx); err != nil {
		return fmt.Errorf("prison: increment %q: %w", l.key, err)
	}
	return nil
}

func (l *infoLock) Extend(ctx context.Context, factor int) (time.Duration, error) {
	if factor <= 0 {
		factor = 2
	}

	// first extension is informational, not punitive: flag it, report base TTL
	if !l.rec.Extended {
		l.rec.Extended = true
		if err := l.set(ctx); err != nil {
			return 0, fmt.Errorf("prison: extend %q: %w", l.key, err)
		}
		return l.prison.ttl, nil
	}

	remaining, err := l.prison.store.TTL(ctx, l.key)
	if err != nil {
		return 0, fmt.Errorf("prison: ttl %q: %w", l.key, err)
	}
	extended := remaining * time.Duration(factor)
	if err := l.prison.store.Expire(ctx, l.key, extended); err != nil {
		return 0, fmt.Errorf("prison: expire %q: %w", l.key, err)
	}
	return extended, nil
}

func (l *infoLock) Free(ctx context.Context) error {
	return l.prison.store.Del(ctx, l.key)
}
