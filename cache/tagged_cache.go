package cache

import (
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultSweepInterval is how often expired entries are reclaimed when no
// interval is configured.
const DefaultSweepInterval = time.Minute

var _ Cache = &TaggedCache{}

type TaggedCacheOption func(c *TaggedCache)

// TaggedCache keeps an expiring store and a tag index in lockstep.
//
// Every mutation of the store happens while mu is held for writing. The store
// reports deletions through its eviction hook synchronously, so the index is
// pruned inside the same critical section whatever removed the entry.
type TaggedCache struct {
	mu    sync.RWMutex
	store *gocache.Cache
	index *tagIndex

	// reason of the deletion being issued to the store, guarded by mu
	reason  EvictReason
	pending []eviction

	onEvicted func(key string, val any, reason EvictReason)
	logger    logrus.FieldLogger
	metrics   *Metrics

	group singleflight.Group

	sweepInterval time.Duration
	close         chan struct{}
	closeOnce     sync.Once
	done          chan struct{}
}

type eviction struct {
	key    string
	val    any
	reason EvictReason
}

// NewTaggedCache builds a cache and starts its sweep goroutine unless the
// sweep interval is disabled. Call Close to stop it.
func NewTaggedCache(opts ...TaggedCacheOption) *TaggedCache {
	res := &TaggedCache{
		// expiration is always given per entry, the janitor is replaced by our sweep
		store:         gocache.New(gocache.NoExpiration, 0),
		index:         newTagIndex(),
		logger:        logrus.StandardLogger(),
		sweepInterval: DefaultSweepInterval,
		close:         make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(res)
	}
	res.store.OnEvicted(res.evicted)
	if res.sweepInterval > 0 {
		go res.sweep()
	} else {
		close(res.done)
	}
	return res
}

// WithSweepInterval sets the period of the background sweep. A value <= 0
// disables it and leaves expiry to Get.
func WithSweepInterval(interval time.Duration) TaggedCacheOption {
	return func(c *TaggedCache) {
		c.sweepInterval = interval
	}
}

// WithEvictCallback registers fn for entries leaving the cache by Remove,
// RemoveByTag or expiry. fn runs after the cache lock is released and may
// call back into the cache. Replacement by Set and Clear do not trigger it.
func WithEvictCallback(fn func(key string, val any, reason EvictReason)) TaggedCacheOption {
	return func(c *TaggedCache) {
		c.onEvicted = fn
	}
}

func WithLogger(logger logrus.FieldLogger) TaggedCacheOption {
	return func(c *TaggedCache) {
		c.logger = logger
	}
}

func WithMetrics(m *Metrics) TaggedCacheOption {
	return func(c *TaggedCache) {
		c.metrics = m
	}
}

// Get returns the value stored under key if it is present and not expired.
// A successful read restarts the clock of a Sliding entry.
func (c *TaggedCache) Get(key string) (any, bool) {
	return c.get(key, nil)
}

// GetAs is Get with a type assertion. A value of another type is reported as
// absent and does not count as a read for sliding expiration.
func GetAs[T any](c *TaggedCache, key string) (T, bool) {
	var zero T
	val, ok := c.get(key, func(val any) bool {
		_, ok := val.(T)
		return ok
	})
	if !ok {
		return zero, false
	}
	return val.(T), true
}

func (c *TaggedCache) get(key string, match func(val any) bool) (any, bool) {
	now := time.Now()

	c.mu.RLock()
	e, ok := c.lookup(key)
	if ok && e.mode == Absolute && !e.expired(now) {
		c.mu.RUnlock()
		return c.accept(e.val, match)
	}
	stale := !ok && c.index.has(key)
	c.mu.RUnlock()
	if !ok && !stale {
		c.metrics.miss()
		return nil, false
	}

	// Sliding hits and expired entries both need the write lock. Check again:
	// the key may have been replaced or removed between the two locks.
	c.mu.Lock()
	defer c.unlock()
	// the wait for the write lock may outlast a concurrent refresh
	now = time.Now()
	e, ok = c.lookup(key)
	if !ok || e.expired(now) {
		if c.index.has(key) {
			c.evict(key, Expired)
		}
		c.metrics.miss()
		return nil, false
	}
	if match != nil && !match(e.val) {
		c.metrics.miss()
		return nil, false
	}
	if e.mode == Sliding && now.After(e.accessedAt) {
		e.accessedAt = now
		c.store.Set(key, e, e.ttl)
	}
	c.metrics.hit()
	return e.val, true
}

func (c *TaggedCache) accept(val any, match func(val any) bool) (any, bool) {
	if match != nil && !match(val) {
		c.metrics.miss()
		return nil, false
	}
	c.metrics.hit()
	return val, true
}

// Set stores val under key, replacing any previous entry together with its
// tag associations. val is kept by reference: mutating it after Set changes
// what later reads observe.
func (c *TaggedCache) Set(key string, val any, ttl time.Duration, mode Mode, tags ...string) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: got %s for key %q", ErrInvalidTTL, ttl, key)
	}
	if !mode.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}
	tags, err := normalizeTags(tags)
	if err != nil {
		return fmt.Errorf("%w: key %q", err, key)
	}

	now := time.Now()
	e := &entry{
		val:        val,
		tags:       tags,
		mode:       mode,
		ttl:        ttl,
		createdAt:  now,
		accessedAt: now,
	}

	c.mu.Lock()
	defer c.unlock()
	c.index.unlink(key)
	c.index.link(key, tags)
	c.store.Set(key, e, ttl)
	c.metrics.set()
	return nil
}

// Remove deletes key and its tag associations. Missing keys are ignored.
func (c *TaggedCache) Remove(key string) {
	c.mu.Lock()
	defer c.unlock()
	c.removeLocked(key, Removed, time.Now())
}

// RemoveByTag deletes every key tagged with tag and returns how many live
// entries were removed. Unknown tags are ignored.
func (c *TaggedCache) RemoveByTag(tag string) int {
	return len(c.RemoveByTagKeys(tag))
}

// RemoveByTagKeys is RemoveByTag returning the sorted live keys it removed.
func (c *TaggedCache) RemoveByTagKeys(tag string) []string {
	c.mu.Lock()
	defer c.unlock()
	now := time.Now()
	var removed []string
	for _, key := range c.index.members(tag) {
		if c.removeLocked(key, TagInvalidated, now) {
			removed = append(removed, key)
		}
	}
	return removed
}

// Clear empties the store and the tag index in one step.
func (c *TaggedCache) Clear() {
	c.mu.Lock()
	defer c.unlock()
	c.store.Flush()
	c.index.reset()
}

// DeleteExpired reclaims every expired entry and returns how many were
// removed. The sweep goroutine calls it on every tick.
func (c *TaggedCache) DeleteExpired() int {
	c.mu.Lock()
	defer c.unlock()
	before := c.index.keyCount()
	c.reason = Expired
	c.store.DeleteExpired()
	return before - c.index.keyCount()
}

// Tags returns the tags key was set with, or nil when key is not live.
func (c *TaggedCache) Tags(key string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.lookup(key)
	if !ok || e.expired(time.Now()) {
		return nil
	}
	return c.index.tagsOf(key)
}

// Keys returns the live keys currently tagged with tag, sorted.
func (c *TaggedCache) Keys(tag string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := time.Now()
	members := c.index.members(tag)
	res := members[:0]
	for _, key := range members {
		if e, ok := c.lookup(key); ok && !e.expired(now) {
			res = append(res, key)
		}
	}
	if len(res) == 0 {
		return nil
	}
	return res
}

// Len counts stored entries, including expired ones not yet reclaimed.
func (c *TaggedCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.keyCount()
}

// TagCount counts tags with at least one stored member.
func (c *TaggedCache) TagCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.tagCount()
}

// Close stops the sweep goroutine. It is safe to call more than once and the
// cache keeps working afterwards, relying on Get for expiry.
func (c *TaggedCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.close)
	})
	<-c.done
	return nil
}

func (c *TaggedCache) lookup(key string) (*entry, bool) {
	val, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	e, ok := val.(*entry)
	return e, ok
}

// removeLocked reports whether a live entry was removed. Expired entries are
// still reclaimed but accounted as expired.
func (c *TaggedCache) removeLocked(key string, reason EvictReason, now time.Time) bool {
	if !c.index.has(key) {
		return false
	}
	e, ok := c.lookup(key)
	if !ok || e.expired(now) {
		c.evict(key, Expired)
		return false
	}
	c.evict(key, reason)
	return true
}

// evict must be called with mu held for writing.
func (c *TaggedCache) evict(key string, reason EvictReason) {
	c.reason = reason
	c.store.Delete(key)
}

// evicted is the store's eviction hook. The store only calls it from
// Delete and DeleteExpired, which are only issued under mu.
func (c *TaggedCache) evicted(key string, val any) {
	c.index.unlink(key)
	c.metrics.evicted(c.reason)
	if c.onEvicted == nil {
		return
	}
	e, ok := val.(*entry)
	if !ok {
		return
	}
	c.pending = append(c.pending, eviction{key: key, val: e.val, reason: c.reason})
}

// unlock releases the write lock and then runs the eviction callbacks
// collected while it was held.
func (c *TaggedCache) unlock() {
	evictions := c.pending
	c.pending = nil
	c.metrics.size(c.index.keyCount(), c.index.tagCount())
	c.mu.Unlock()
	for _, ev := range evictions {
		c.onEvicted(ev.key, ev.val, ev.reason)
	}
}
