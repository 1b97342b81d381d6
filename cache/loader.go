package cache

import (
	"context"
	"fmt"
	"time"
)

// GetOrLoad returns the cached value for key or calls load to produce it.
// Concurrent misses on the same key share a single load. A failed load is
// returned as is and nothing is cached.
func (c *TaggedCache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, mode Mode,
	tags []string, load LoadFunc) (any, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: got %s for key %q", ErrInvalidTTL, ttl, key)
	}
	if val, ok := c.Get(key); ok {
		return val, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		// a load that just finished may already have filled the key
		if val, ok := c.Get(key); ok {
			return val, nil
		}
		val, err := load(ctx, key)
		if err != nil {
			return nil, err
		}
		if err = c.Set(key, val, ttl, mode, tags...); err != nil {
			return val, fmt.Errorf("%w: %w", errFailToRefreshCache, err)
		}
		return val, nil
	})
	return val, err
}
