package storage

import (
	"errors"
	"strconv"
	"sync"
	"time"
)

// ErrNotInteger is returned by Incr when the stored value cannot be
// parsed as a base-10 integer.
var ErrNotInteger = errors.New("value is not an integer or out of range")

type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	value    string
	expireAt int64 // unix millis, 0 means no expiry
}

func (e *entry) expired(now int64) bool {
	return e.expireAt != 0 && e.expireAt < now
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
	}
}

// Set stores value under key. expireAfter is a relative TTL in
// milliseconds; zero means the entry never expires.
func (c *Cache) Set(key, value string, expireAfter int64) {
	e := &entry{value: value}

	if expireAfter > 0 {
		e.expireAt = time.Now().UnixMilli() + expireAfter
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// SetExpireAt stores value under key with an absolute expiry in unix
// millis. Used by the snapshot loader.
func (c *Cache) SetExpireAt(key, value string, expireAt int64) {
	c.mu.Lock()
	c.entries[key] = &entry{value: value, expireAt: expireAt}
	c.mu.Unlock()
}

// Get returns the value for key, or nil if the key is absent or expired.
func (c *Cache) Get(key string) *string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.entries[key]; ok && !e.expired(time.Now().UnixMilli()) {
		return &e.value
	}

	return nil
}

// Incr increments the integer stored at key and returns the new value.
// A missing or expired key counts from zero. The entry's expiry, if any,
// is preserved.
func (c *Cache) Incr(key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.expired(time.Now().UnixMilli()) {
		c.entries[key] = &entry{value: "1"}
		return 1, nil
	}

	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, ErrNotInteger
	}

	n++
	e.value = strconv.FormatInt(n, 10)
	return n, nil
}

// Del removes the given keys and returns how many were present and live.
func (c *Cache) Del(keys ...string) int {
	now := time.Now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int
	for _, key := range keys {
		if e, ok := c.entries[key]; ok {
			if !e.expired(now) {
				removed++
			}
			delete(c.entries, key)
		}
	}
	return removed
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	now := time.Now().UnixMilli()

	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int
	for _, e := range c.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// Reset empties the cache completely.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// snapshotEntry is the flattened form handed to the snapshot writer.
type snapshotEntry struct {
	key      string
	value    string
	expireAt int64
}

// liveEntries copies the live entries out under the read lock.
func (c *Cache) liveEntries() []snapshotEntry {
	now := time.Now().UnixMilli()

	c.mu.RLock()
	defer c.mu.RUnlock()

	ret := make([]snapshotEntry, 0, len(c.entries))
	for key, e := range c.entries {
		if e.expired(now) {
			continue
		}
		ret = append(ret, snapshotEntry{key: key, value: e.value, expireAt: e.expireAt})
	}
	return ret
}
