package binding

import (
	"context"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// OrdersQueryKey is the cache key of the order list.
const OrdersQueryKey = "orders"

type entry struct {
	value     any
	fetchedAt time.Time
	stale     bool
}

// QueryCache keeps recent query results. An invalidated entry stays readable
// but is reported stale, so the next Fetch goes back to the source.
type QueryCache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, *entry]
	now func() time.Time
}

// NewQueryCache creates a cache holding at most size entries.
func NewQueryCache(size int) (*QueryCache, error) {
	l, err := lru.New[string, *entry](size)
	if err != nil {
		return nil, err
	}
	return &QueryCache{lru: l, now: time.Now}, nil
}

// Set stores a fresh value.
func (q *QueryCache) Set(key string, value any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lru.Add(key, &entry{value: value, fetchedAt: q.now()})
}

// Get returns the cached value and whether it is stale. ok is false on a miss.
func (q *QueryCache) Get(key string) (value any, stale, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.lru.Get(key)
	if !ok {
		return nil, false, false
	}
	return e.value, e.stale, true
}

// Invalidate marks stale every entry whose key equals one of keys or starts
// with one of them followed by "/". It returns how many entries were marked.
func (q *QueryCache) Invalidate(keys ...string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, k := range q.lru.Keys() {
		if !matches(k, keys) {
			continue
		}
		if e, ok := q.lru.Peek(k); ok && !e.stale {
			e.stale = true
			n++
		}
	}
	return n
}

// Fetch returns the cached value when fresh, otherwise calls load and caches its result.
func (q *QueryCache) Fetch(ctx context.Context, key string, load func(context.Context) (any, error)) (any, error) {
	if v, stale, ok := q.Get(key); ok && !stale {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	q.Set(key, v)
	return v, nil
}

func matches(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if key == p || strings.HasPrefix(key, p+"/") {
			return true
		}
	}
	return false
}
