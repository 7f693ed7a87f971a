package filestore

import (
	"container/list"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/couchcryptid/airquality-dashboard/internal/domain"
	"github.com/couchcryptid/airquality-dashboard/internal/observability"
)

// Source loads a dataset and can name the files it would read.
type Source interface {
	Load(ctx context.Context) (*domain.Dataset, error)
	Resolve() ([]string, error)
}

// CachedLoader wraps a Source with an in-memory LRU cache keyed on the
// identity of the input files: path, size, and modification time. A changed
// file produces a new key, and Invalidate drops every entry.
type CachedLoader struct {
	inner   Source
	cache   *lruCache
	metrics *observability.Metrics

	// loadMu serializes misses so concurrent renders parse the files once.
	loadMu sync.Mutex
}

// NewCachedLoader creates a cache decorator around a loader.
func NewCachedLoader(inner Source, maxEntries int, metrics *observability.Metrics) *CachedLoader {
	return &CachedLoader{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// Load returns the cached dataset for the current file identities, loading it
// on a miss.
func (c *CachedLoader) Load(ctx context.Context) (*domain.Dataset, error) {
	key, err := c.key()
	if err != nil {
		return nil, err
	}
	if ds, ok := c.cache.get(key); ok {
		c.metrics.DatasetCache.WithLabelValues("hit").Inc()
		return ds, nil
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	if ds, ok := c.cache.get(key); ok {
		c.metrics.DatasetCache.WithLabelValues("hit").Inc()
		return ds, nil
	}
	c.metrics.DatasetCache.WithLabelValues("miss").Inc()

	ds, err := c.inner.Load(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, ds)
	return ds, nil
}

// Resolve delegates to the wrapped source.
func (c *CachedLoader) Resolve() ([]string, error) { return c.inner.Resolve() }

// Invalidate drops every cached dataset.
func (c *CachedLoader) Invalidate() {
	c.cache.clear()
	c.metrics.CacheInvalidations.Inc()
}

// Len returns the number of cached datasets.
func (c *CachedLoader) Len() int { return c.cache.len() }

func (c *CachedLoader) key() (string, error) {
	files, err := c.inner.Resolve()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, f)
		}
		fmt.Fprintf(&b, "%s|%d|%d;", f, info.Size(), info.ModTime().UnixNano())
	}
	return b.String(), nil
}

// lruCache holds the most recently used datasets, newest at the front.
type lruCache struct {
	mu    sync.Mutex
	limit int
	order *list.List
	items map[string]*list.Element
}

type cached struct {
	key string
	ds  *domain.Dataset
}

func newLRUCache(limit int) *lruCache {
	return &lruCache{
		limit: max(limit, 1),
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (*domain.Dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cached).ds, true
}

func (c *lruCache) put(key string, ds *domain.Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cached).ds = ds
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&cached{key: key, ds: ds})

	for c.order.Len() > c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cached).key)
	}
}

func (c *lruCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	clear(c.items)
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
