package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/hrygo/followup/plugin/ai/cache"
)

// CachedStore decorates an EntryStore with an LRU of the latest window per key.
type CachedStore struct {
	next   EntryStore
	cache  *cache.LRU[[]MemoryEntry]
	window int
	ttl    time.Duration
}

// NewCachedStore wraps next. window is the number of entries cached per key (default 100).
func NewCachedStore(next EntryStore, maxKeys, window int, ttl time.Duration) *CachedStore {
	if window <= 0 {
		window = DefaultHistoryLimit
	}
	return &CachedStore{
		next:   next,
		cache:  cache.NewLRU[[]MemoryEntry](maxKeys, ttl),
		window: window,
		ttl:    ttl,
	}
}

// Append writes through and invalidates the key.
func (c *CachedStore) Append(ctx context.Context, entry MemoryEntry) error {
	defer c.cache.Invalidate(cacheKey(Key{UserID: entry.UserID, ContactID: entry.ContactID}))
	return c.next.Append(ctx, entry)
}

// List serves from cache when limit fits in the cached window.
func (c *CachedStore) List(ctx context.Context, key Key, limit int) ([]MemoryEntry, error) {
	if limit <= 0 || limit > c.window {
		limit = c.window
	}

	k := cacheKey(key)
	if cached, ok := c.cache.Get(k); ok {
		return tail(cached, limit), nil
	}

	entries, err := c.next.List(ctx, key, c.window)
	if err != nil {
		return nil, err
	}
	c.cache.Set(k, entries, c.ttl)
	return tail(entries, limit), nil
}

// Invalidate drops every cached window for userID.
func (c *CachedStore) Invalidate(userID int32) int {
	return c.cache.Invalidate(fmt.Sprintf("%d:*", userID))
}

func cacheKey(k Key) string {
	return fmt.Sprintf("%d:%s", k.UserID, k.ContactID)
}

func tail(entries []MemoryEntry, n int) []MemoryEntry {
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	out := make([]MemoryEntry, len(entries))
	copy(out, entries)
	return out
}

var _ EntryStore = (*CachedStore)(nil)
