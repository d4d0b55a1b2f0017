package driver

import (
	"context"
	"time"
)

// Null is the always-available no-op driver: reads miss, writes report false,
// Remember just runs compute. It is the degrade target when a remote driver
// closes -- callers keep functioning, only without caching.
type Null struct {
	Notifier
	prefix string
}

var _ Driver = (*Null)(nil)

func NewNull() *Null { return &Null{} }

func (n *Null) Client() any    { return nil }
func (n *Null) IsClosed() bool { return false }

func (n *Null) Prefix() string          { return n.prefix }
func (n *Null) SetPrefix(prefix string) { n.prefix = prefix }

func (n *Null) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (n *Null) Put(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, nil
}

func (n *Null) TTL(context.Context, string) (time.Duration, error) { return 0, nil }

func (n *Null) GetMany(_ context.Context, keys ...string) ([][]byte, error) {
	return make([][]byte, len(keys)), nil
}

func (n *Null) PutMany(context.Context, map[string][]byte, time.Duration) (bool, error) {
	return false, nil
}

func (n *Null) Forget(context.Context, ...string) (bool, error)       { return true, nil }
func (n *Null) ForgetByPattern(context.Context, string) (bool, error) { return true, nil }

func (n *Null) Remember(ctx context.Context, _ string, _ time.Duration, compute ComputeFunc) ([]byte, error) {
	return compute(ctx)
}

func (n *Null) RememberForever(ctx context.Context, key string, compute ComputeFunc) ([]byte, error) {
	return n.Remember(ctx, key, 0, compute)
}

func (n *Null) Flush(context.Context) (bool, error) { return true, nil }
func (n *Null) Quit(context.Context) error          { return nil }
