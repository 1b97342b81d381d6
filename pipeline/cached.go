package pipeline

import (
	"context"
	"time"

	"tagcache/cache"
)

// KeyFunc derives the cache key for a step input.
type KeyFunc func(input any) (string, error)

var _ Step = &CachedStep{}

// CachedStep memoizes another step's output in a TaggedCache. Outputs are
// tagged, so a whole family of memoized results can be dropped with
// RemoveByTag.
type CachedStep struct {
	Step
	cache *cache.TaggedCache
	key   KeyFunc
	ttl   time.Duration
	mode  cache.Mode
	tags  []string
}

func Cached(step Step, c *cache.TaggedCache, key KeyFunc, ttl time.Duration, mode cache.Mode, tags ...string) *CachedStep {
	return &CachedStep{
		Step:  step,
		cache: c,
		key:   key,
		ttl:   ttl,
		mode:  mode,
		tags:  tags,
	}
}

func (s *CachedStep) Execute(ctx context.Context, input any) (any, error) {
	key, err := s.key(input)
	if err != nil {
		return nil, err
	}
	return s.cache.GetOrLoad(ctx, key, s.ttl, s.mode, s.tags, func(ctx context.Context, key string) (any, error) {
		return s.Step.Execute(ctx, input)
	})
}
