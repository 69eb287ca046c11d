// Package cache materializes all work item documents into kind-keyed maps.
//
// The cache is an explicit, injectable object owned by one resolver
// instance; there is no module-level singleton. Freshness is the only
// automatic behavior: queries go through EnsureFresh, which triggers a full
// rebuild once the TTL has elapsed. Callers that mutate documents must call
// Rebuild explicitly afterward. There is no partial or incremental update —
// every rebuild is a full reload, trading efficiency for correctness.
package cache

import (
	"context"
	"sort"
	"time"

	"github.com/trackdownhq/trackdown/internal/debug"
	"github.com/trackdownhq/trackdown/internal/types"
)

// DefaultTTL is the fixed time-to-live for cache freshness.
const DefaultTTL = 5 * time.Minute

// Loader supplies the full document set, keyed by kind. Implemented by the
// document store.
type Loader interface {
	LoadAll(ctx context.Context) (map[types.Kind][]*types.Item, error)
}

// Cache holds the four kind-keyed item maps.
type Cache struct {
	loader      Loader
	ttl         time.Duration
	now         func() time.Time
	items       map[types.Kind]map[string]*types.Item
	lastRebuild time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the default freshness TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock injects a clock so tests control staleness deterministically
// instead of relying on wall-clock time.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache. The first EnsureFresh or Rebuild populates it.
func New(loader Loader, opts ...Option) *Cache {
	c := &Cache{
		loader: loader,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rebuild clears and repopulates all four maps from the loader and records
// the rebuild timestamp. On load failure the previous contents are kept.
func (c *Cache) Rebuild(ctx context.Context) error {
	loaded, err := c.loader.LoadAll(ctx)
	if err != nil {
		return err
	}
	items := make(map[types.Kind]map[string]*types.Item, len(types.Kinds))
	total := 0
	for _, kind := range types.Kinds {
		items[kind] = make(map[string]*types.Item, len(loaded[kind]))
		for _, item := range loaded[kind] {
			items[kind][item.ID] = item
			total++
		}
	}
	c.items = items
	c.lastRebuild = c.now()
	debug.Logf("cache: rebuilt with %d items\n", total)
	return nil
}

// IsStale reports whether the cache has never been built or the TTL has
// elapsed since the last rebuild.
func (c *Cache) IsStale() bool {
	if c.items == nil {
		return true
	}
	return c.now().Sub(c.lastRebuild) > c.ttl
}

// EnsureFresh rebuilds if and only if the cache is stale. This is the only
// automatic invalidation; mutating callers rebuild explicitly.
func (c *Cache) EnsureFresh(ctx context.Context) error {
	if !c.IsStale() {
		return nil
	}
	return c.Rebuild(ctx)
}

// Age returns the time since the last rebuild.
func (c *Cache) Age() time.Duration {
	if c.lastRebuild.IsZero() {
		return 0
	}
	return c.now().Sub(c.lastRebuild)
}

// Get returns the item of the given kind and ID, or nil when absent.
// Absence is an expected, common case for hierarchy lookups.
func (c *Cache) Get(kind types.Kind, id string) *types.Item {
	return c.items[kind][id]
}

// Lookup finds an item by ID alone, deriving the kind from the ID prefix.
func (c *Cache) Lookup(id string) *types.Item {
	kind, ok := types.KindForID(id)
	if !ok {
		return nil
	}
	return c.Get(kind, id)
}

// All returns every cached item of the given kind, sorted by ID.
func (c *Cache) All(kind types.Kind) []*types.Item {
	out := make([]*types.Item, 0, len(c.items[kind]))
	for _, item := range c.items[kind] {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllItems returns the union of all kinds as one ID-keyed map, the node set
// for graph traversal.
func (c *Cache) AllItems() map[string]*types.Item {
	out := make(map[string]*types.Item)
	for _, kind := range types.Kinds {
		for id, item := range c.items[kind] {
			out[id] = item
		}
	}
	return out
}
