// Package prison implements the account lockout engine: a per-identity
// failed-attempt counter with TTL-preserving writes and punitive TTL
// extension once locked.
//
// The engine talks to the key-value store directly through its own narrow
// Store, bypassing the cache facade on purpose: lockout records must never
// silently disappear under a degrade-to-null decision. Store errors
// propagate to the caller, which picks its own fail-open or fail-closed
// policy.
package prison

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harmonic-studioz/pouchfi-api/cache"
)

const keySuffix = ":lockout"

// Options tune the lockout policy.
type Options struct {
	// Limit is the number of failed attempts before an identity locks. 0 => 10.
	Limit int
	// TTL is how long a record lives without extension. 0 => 1h.
	TTL time.Duration
	// Logger; nil disables logging.
	Logger cache.Logger
}

type Prison struct {
	store Store
	limit int
	ttl   time.Duration
	log   cache.Logger
}

func New(store Store, opts Options) (*Prison, error) {
	if store == nil {
		return nil, errors.New("prison: store is required")
	}
	p := &Prison{
		store: store,
		limit: opts.Limit,
		ttl:   opts.TTL,
		log:   opts.Logger,
	}
	if p.limit <= 0 {
		p.limit = 10
	}
	if p.ttl <= 0 {
		p.ttl = time.Hour
	}
	if p.log == nil {
		p.log = cache.NopLogger{}
	}
	return p, nil
}

// record is the persisted lockout state. The first failed attempt writes it
// without the extended field; omitempty keeps the encoding identical.
type record struct {
	Count     int  `json:"count"`
	Lockedout bool `json:"lockedout"`
	Extended  bool `json:"extended,omitempty"`
}

func (p *Prison) key(identity string) string { return identity + keySuffix }

// Cell returns the lock for identity. An identity with no record gets a bare
// lock whose Increment seeds the first record; one with a record gets the
// full increment/extend/free behavior. A record that fails to decode is
// treated as absent, so a corrupt blob can never lock an identity out for
// good.
func (p *Prison) Cell(ctx context.Context, identity string) (Lock, error) {
	key := p.key(identity)
	raw, ok, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("prison: read %q: %w", key, err)
	}
	if !ok {
		return &bareLock{prison: p, key: key}, nil
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		p.log.Warn("prison: corrupt lockout record treated as absent", cache.Fields{"key": key, "err": err})
		return &bareLock{prison: p, key: key}, nil
	}
	return &infoLock{prison: p, key: key, rec: rec}, nil
}

// Free removes identity's record entirely, regardless of state.
// Administrative unlock, or the cleanup after a successful credential check.
func (p *Prison) Free(ctx context.Context, identity string) error {
	if err := p.store.Del(ctx, p.key(identity)); err != nil {
		return fmt.Errorf("prison: free %q: %w", p.key(identity), err)
	}
	return nil
}
