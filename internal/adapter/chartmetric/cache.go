package chartmetric

import (
	"context"
	"fmt"
	"sync"

	"github.com/ticketera/sellout-forecast/internal/domain"
	"github.com/ticketera/sellout-forecast/internal/observability"
)

// CachedSource wraps an ArtistMetricsSource with an in-memory LRU cache.
// Artist metrics move slowly relative to a forecasting session, so repeated
// lookups for the same artist within one process lifetime reuse the first
// fetch instead of spending provider quota.
type CachedSource struct {
	inner   domain.ArtistMetricsSource
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around a metrics source.
func NewCachedSource(inner domain.ArtistMetricsSource, maxEntries int, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedSource) ArtistMetrics(ctx context.Context, artistID int64) (*domain.ArtistMetricsRecord, error) {
	key := fmt.Sprintf("artist:%d", artistID)
	if rec, ok := c.cache.get(key); ok {
		c.metrics.ProviderCache.WithLabelValues("artist_metrics", "hit").Inc()
		return &rec, nil
	}
	c.metrics.ProviderCache.WithLabelValues("artist_metrics", "miss").Inc()

	rec, err := c.inner.ArtistMetrics(ctx, artistID)
	if err != nil {
		return rec, err
	}
	// Only cache found records so transient no-data responses can be retried.
	if rec != nil {
		c.cache.put(key, *rec)
	}
	return rec, nil
}

// lruCache is a simple thread-safe LRU cache for artist metrics records.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.ArtistMetricsRecord
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.ArtistMetricsRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.ArtistMetricsRecord{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.ArtistMetricsRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
