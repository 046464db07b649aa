package memory

import (
	"context"
	"fmt"
	"sync"
)

// EntryStore persists memory entries.
type EntryStore interface {
	// Append stores a new entry.
	Append(ctx context.Context, entry MemoryEntry) error

	// List returns up to limit most recent entries for key, oldest first.
	List(ctx context.Context, key Key, limit int) ([]MemoryEntry, error)
}

// InMemoryEntryStore keeps a bounded window of entries per key.
// Thread-safe for concurrent access.
type InMemoryEntryStore struct {
	mu      sync.RWMutex
	entries map[Key][]MemoryEntry
	maxSize int // maximum entries kept per key
}

// NewInMemoryEntryStore creates a store keeping at most maxSize entries per key (default 100).
func NewInMemoryEntryStore(maxSize int) *InMemoryEntryStore {
	if maxSize <= 0 {
		maxSize = DefaultHistoryLimit
	}
	return &InMemoryEntryStore{
		entries: make(map[Key][]MemoryEntry),
		maxSize: maxSize,
	}
}

// Append stores a new entry, dropping the oldest once the window is full.
func (s *InMemoryEntryStore) Append(_ context.Context, entry MemoryEntry) error {
	if entry.ContactID == "" {
		return fmt.Errorf("memory entry has no contact id")
	}
	key := Key{UserID: entry.UserID, ContactID: entry.ContactID}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.entries[key], entry)
	if len(list) > s.maxSize {
		list = list[len(list)-s.maxSize:]
	}
	s.entries[key] = list
	return nil
}

// List returns up to limit most recent entries, oldest first.
func (s *InMemoryEntryStore) List(_ context.Context, key Key, limit int) ([]MemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.entries[key]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	out := make([]MemoryEntry, len(list))
	copy(out, list)
	return out, nil
}
