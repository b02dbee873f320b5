package eventservices

import (
	"sort"
	"strings"
	"sync"
	"time"
)

type cacheEntry[T any] struct {
	storedAt time.Time
	value    T
}

type CacheMetadata struct {
	Cached     bool      `json:"cached"`
	AgeSeconds int       `json:"cache_age_seconds"`
	CachedAt   time.Time `json:"cached_at"`
}

type CacheEntryStat struct {
	Key        string    `json:"key"`
	AgeSeconds int       `json:"age_seconds"`
	CachedAt   time.Time `json:"cached_at"`
}

type CacheStats struct {
	TotalEntries int              `json:"total_entries"`
	Hits         int              `json:"hits"`
	Misses       int              `json:"misses"`
	Entries      []CacheEntryStat `json:"entries"`
}

// TTLCache is a mutex-guarded key/value store with lazy eviction: entries are
// only dropped when a read finds them older than the effective TTL. The
// default TTL follows the market session clock, so weekend reads tolerate
// much staler values than core-hours reads.
type TTLCache[T any] struct {
	mutex   sync.Mutex
	clock   *MarketSessionClock
	entries map[string]cacheEntry[T]
	hits    int
	misses  int
}

func NewTTLCache[T any](clock *MarketSessionClock) *TTLCache[T] {
	return &TTLCache[T]{
		clock:   clock,
		entries: make(map[string]cacheEntry[T]),
	}
}

func (c *TTLCache[T]) Set(key string, value T) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = cacheEntry[T]{
		storedAt: c.clock.Now(),
		value:    value,
	}
}

// Get returns the cached value under the session-derived default TTL.
func (c *TTLCache[T]) Get(key string) (T, bool) {
	return c.GetWithTTL(key, c.clock.DefaultTTL())
}

func (c *TTLCache[T]) GetWithTTL(key string, ttl time.Duration) (T, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var zero T

	entry, found := c.entries[key]
	if !found {
		c.misses += 1
		return zero, false
	}

	if c.clock.Now().Sub(entry.storedAt) >= ttl {
		delete(c.entries, key)
		c.misses += 1
		return zero, false
	}

	c.hits += 1
	return entry.value, true
}

func (c *TTLCache[T]) GetWithMetadata(key string, ttl time.Duration) (T, CacheMetadata, bool) {
	value, found := c.GetWithTTL(key, ttl)
	if !found {
		return value, CacheMetadata{}, false
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry := c.entries[key]

	return value, CacheMetadata{
		Cached:     true,
		AgeSeconds: int(c.clock.Now().Sub(entry.storedAt).Seconds()),
		CachedAt:   entry.storedAt,
	}, true
}

// Clear removes entries whose key contains pattern, or every entry when the
// pattern is empty. Returns the number of entries removed.
func (c *TTLCache[T]) Clear(pattern string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if pattern == "" {
		count := len(c.entries)
		c.entries = make(map[string]cacheEntry[T])
		return count
	}

	count := 0
	for key := range c.entries {
		if strings.Contains(key, pattern) {
			delete(c.entries, key)
			count += 1
		}
	}

	return count
}

func (c *TTLCache[T]) Stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.clock.Now()

	stats := CacheStats{
		TotalEntries: len(c.entries),
		Hits:         c.hits,
		Misses:       c.misses,
		Entries:      make([]CacheEntryStat, 0, len(c.entries)),
	}

	for key, entry := range c.entries {
		stats.Entries = append(stats.Entries, CacheEntryStat{
			Key:        key,
			AgeSeconds: int(now.Sub(entry.storedAt).Seconds()),
			CachedAt:   entry.storedAt,
		})
	}

	sort.Slice(stats.Entries, func(i, j int) bool {
		return stats.Entries[i].AgeSeconds < stats.Entries[j].AgeSeconds
	})

	return stats
}
