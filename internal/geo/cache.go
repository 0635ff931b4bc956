package geo

import (
	"github.com/couchcryptid/climate-map/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedResolver memoizes resolutions by feature key in an LRU cache. A
// cache belongs to one metadata snapshot; build a new one when metadata
// changes.
type CachedResolver struct {
	inner   CountryResolver
	cache   *lru.Cache[string, resolution]
	metrics *observability.Metrics
}

// NewCachedResolver creates a cache decorator around a resolver.
func NewCachedResolver(inner CountryResolver, maxEntries int, metrics *observability.Metrics) *CachedResolver {
	if maxEntries < 1 {
		maxEntries = 1
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, resolution](maxEntries)
	return &CachedResolver{
		inner:   inner,
		cache:   cache,
		metrics: metrics,
	}
}

func (c *CachedResolver) Resolve(f Feature) (string, bool) {
	key := f.Key()
	if key == "" {
		return c.inner.Resolve(f)
	}
	if res, ok := c.cache.Get(key); ok {
		c.metrics.ResolverCache.WithLabelValues("hit").Inc()
		return res.name, res.ok
	}
	c.metrics.ResolverCache.WithLabelValues("miss").Inc()

	name, ok := c.inner.Resolve(f)
	// Misses are cached too: for a fixed snapshot they never change.
	c.cache.Add(key, resolution{name: name, ok: ok})
	return name, ok
}

type resolution struct {
	name string
	ok   bool
}
