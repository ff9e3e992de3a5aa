package assets

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheSize = 64
	DefaultCacheTTL  = time.Minute
)

type listing struct {
	names   []string
	expires time.Time
}

// CachedStore memoises folder listings of another Store for a short TTL.
// Concurrent misses for the same folder share one backend call. Empty
// listings and errors are never cached, and a failed Stat evicts the
// folder so the next List sees the backend again. Reads are not cached.
type CachedStore struct {
	next  Store
	ttl   time.Duration
	now   func() time.Time
	cache *lru.Cache
	group singleflight.Group
}

type CacheOption func(*CachedStore)

// WithCacheClock replaces time.Now, for tests.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *CachedStore) {
		c.now = now
	}
}

func NewCachedStore(next Store, size int, ttl time.Duration, opts ...CacheOption) *CachedStore {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	cache, _ := lru.New(size)
	c := &CachedStore{next: next, ttl: ttl, now: time.Now, cache: cache}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedStore) List(ctx context.Context, folder string) ([]string, error) {
	if v, ok := c.cache.Get(folder); ok {
		entry := v.(listing)
		if c.now().Before(entry.expires) {
			return entry.names, nil
		}
		c.cache.Remove(folder)
	}

	// shared by every waiter, so one caller's cancellation must not fail the rest
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(folder, func() (interface{}, error) {
		names, err := c.next.List(shared, folder)
		if err != nil {
			return nil, err
		}
		if len(names) > 0 {
			c.cache.Add(folder, listing{names: names, expires: c.now().Add(c.ttl)})
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (c *CachedStore) Read(ctx context.Context, assetPath string) ([]byte, error) {
	return c.next.Read(ctx, assetPath)
}

func (c *CachedStore) Stat(ctx context.Context, assetPath string) error {
	err := c.next.Stat(ctx, assetPath)
	if err != nil {
		c.cache.Remove(path.Dir(assetPath))
	}
	return err
}

// Purge drops every cached listing so new uploads become visible.
func (c *CachedStore) Purge() {
	n := c.cache.Len()
	c.cache.Purge()
	slog.Info("Asset listing cache purged",
		slog.String("type", "sys"),
		slog.Int("entries", n))
}

// SchedulePurge registers Purge on a cron schedule and starts the scheduler.
// The caller stops the returned cron on shutdown.
func (c *CachedStore) SchedulePurge(schedule string) (*cron.Cron, error) {
	sched := cron.New()
	if _, err := sched.AddFunc(schedule, c.Purge); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	sched.Start()
	return sched, nil
}
