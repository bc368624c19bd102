// internal/ratelimit/localstore.go
package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// LocalCounterStore keeps per-second counters in a TTL cache. Only valid
// when a single process performs rate admission (dev, tests, single-node
// worker); multi-process deployments use the Postgres-backed store.
type LocalCounterStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, int64]
}

func NewLocalCounterStore() *LocalCounterStore {
	// Keys are only ever read during their own second; the short TTL is
	// just hygiene so dead seconds do not pile up.
	cache := ttlcache.New(
		ttlcache.WithTTL[string, int64](2 * time.Second),
	)
	go cache.Start()
	return &LocalCounterStore{cache: cache}
}

func (s *LocalCounterStore) Incr(_ context.Context, epochSecond int64) (int64, error) {
	key := strconv.FormatInt(epochSecond, 10)

	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64 = 1
	if item := s.cache.Get(key); item != nil {
		count = item.Value() + 1
	}
	s.cache.Set(key, count, ttlcache.DefaultTTL)
	return count, nil
}

func (s *LocalCounterStore) Stop() {
	s.cache.Stop()
}
