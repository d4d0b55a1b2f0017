package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const (
	shardCount    = 32
	sweepInterval = time.Minute
)

// MemoryStore is the in-process bucket store: always correct for a single
// node, never distributed. Buckets are sharded to keep lock contention off
// the request path; a background sweep drops expired buckets so idle
// identities do not accumulate.
type MemoryStore struct {
	shards [shardCount]*shard

	ticker    *time.Ticker
	stopCh    chan struct{}
	closeWg   sync.WaitGroup
	closeOnce sync.Once
}

type shard struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	consumed     int64
	resetAt      time.Time
	blockedUntil time.Time // zero when not blocked
}

// expiresAt is when the bucket can be recycled.
func (b *bucket) expiresAt() time.Time {
	if b.blockedUntil.After(b.resetAt) {
		return b.blockedUntil
	}
	return b.resetAt
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		ticker: time.NewTicker(sweepInterval),
		stopCh: make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i] = &shard{buckets: make(map[string]*bucket)}
	}
	s.closeWg.Add(1)
	go s.sweepLoop()
	return s
}

func (s *MemoryStore) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

func (s *MemoryStore) Consume(_ context.Context, key string, cfg Config) (Result, error) {
	now := time.Now()
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	b, ok := sh.buckets[key]
	if !ok || now.After(b.expiresAt()) {
		b = &bucket{resetAt: now.Add(cfg.Duration)}
		sh.buckets[key] = b
	}

	b.consumed++

	if !b.blockedUntil.IsZero() && now.Before(b.blockedUntil) {
		return Result{
			Consumed:   b.consumed,
			RetryAfter: b.blockedUntil.Sub(now),
		}, nil
	}

	points := int64(cfg.Points)
	if b.consumed > points {
		retry := b.resetAt.Sub(now)
		if cfg.BlockDuration > 0 {
			b.blockedUntil = now.Add(cfg.BlockDuration)
			retry = cfg.BlockDuration
		}
		return Result{
			Consumed:   b.consumed,
			RetryAfter: retry,
		}, nil
	}

	return Result{
		Allowed:    true,
		Remaining:  points - b.consumed,
		Consumed:   b.consumed,
		RetryAfter: b.resetAt.Sub(now),
	}, nil
}

func (s *MemoryStore) sweepLoop() {
	defer s.closeWg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.ticker.C:
			now := time.Now()
			for _, sh := range s.shards {
				sh.mu.Lock()
				for k, b := range sh.buckets {
					if now.After(b.expiresAt()) {
						delete(sh.buckets, k)
					}
				}
				sh.mu.Unlock()
			}
		}
	}
}

func (s *MemoryStore) Close() {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.closeWg.Wait()
		s.ticker.Stop()
	})
}
