// Package cache implements an in-process key/value cache with per-entry
// absolute or sliding expiration and group invalidation through tags.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidTTL  = errors.New("cache: ttl must be positive")
	ErrInvalidMode = errors.New("cache: unknown expiration mode")
	ErrEmptyTag    = errors.New("cache: tag must not be empty")

	errFailToRefreshCache = errors.New("cache: failed to refresh cache")
)

// Cache is what callers needing memoized or group-invalidatable values depend on.
type Cache interface {
	// Get reports absent for missing, expired and wrongly typed values alike.
	Get(key string) (any, bool)
	Set(key string, val any, ttl time.Duration, mode Mode, tags ...string) error
	Remove(key string)
	RemoveByTag(tag string) int
	Clear()
}

// LoadFunc produces the value for a key on a cache miss.
type LoadFunc func(ctx context.Context, key string) (any, error)

// Mode selects how an entry's deadline is computed.
type Mode uint8

const (
	// Absolute entries expire ttl after they were set, whatever the reads.
	Absolute Mode = iota + 1
	// Sliding entries expire ttl after the last successful read.
	Sliding
)

func (m Mode) String() string {
	switch m {
	case Absolute:
		return "absolute"
	case Sliding:
		return "sliding"
	default:
		return "unknown"
	}
}

// ParseMode accepts the names produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "absolute", "":
		return Absolute, nil
	case "sliding":
		return Sliding, nil
	default:
		return 0, ErrInvalidMode
	}
}

func (m Mode) valid() bool {
	return m == Absolute || m == Sliding
}

// EvictReason tells an eviction callback why an entry left the cache.
type EvictReason uint8

const (
	Removed EvictReason = iota + 1
	TagInvalidated
	Expired
)

func (r EvictReason) String() string {
	switch r {
	case Removed:
		return "removed"
	case TagInvalidated:
		return "tag_invalidated"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// entry is what the underlying store holds for every key.
type entry struct {
	val  any
	tags []string
	mode Mode
	ttl  time.Duration

	createdAt time.Time
	// accessedAt only moves for Sliding entries
	accessedAt time.Time
}

func (e *entry) deadline() time.Time {
	return e.accessedAt.Add(e.ttl)
}

// expired treats the deadline itself as already expired.
func (e *entry) expired(now time.Time) bool {
	return !now.Before(e.deadline())
}
