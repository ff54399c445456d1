package entitystore

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/yourusername/race-features/internal/frame"
)

// CachedStore wraps a Store with a TTL cache keyed by table and column list.
// Tables are immutable, so cached values are shared between callers.
type CachedStore struct {
	hits   uint64
	misses uint64
	next   Store
	cache  *cache.Cache
	ttl    time.Duration
}

// NewCachedStore creates a cached store around next
func NewCachedStore(next Store, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:  next,
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// Fetch implements Store
func (s *CachedStore) Fetch(ctx context.Context, table string, columns []string) (*frame.Table, error) {
	key := table + "|" + strings.Join(columns, ",")
	if v, found := s.cache.Get(key); found {
		if t, ok := v.(*frame.Table); ok {
			atomic.AddUint64(&s.hits, 1)
			return t, nil
		}
	}
	atomic.AddUint64(&s.misses, 1)

	t, err := s.next.Fetch(ctx, table, columns)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, t, s.ttl)
	return t, nil
}

// Invalidate drops every cached table
func (s *CachedStore) Invalidate() {
	s.cache.Flush()
}

// Stats returns cache hit and miss counts
func (s *CachedStore) Stats() (hits, misses uint64) {
	return atomic.LoadUint64(&s.hits), atomic.LoadUint64(&s.misses)
}
