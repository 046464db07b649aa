package store

import (
	"context"
)

// MemoryEntry is one analysed interaction remembered for a contact.
// Topics and ActionItems are stored as JSON arrays.
type MemoryEntry struct {
	ID                 int32
	UID                string
	UserID             int32
	ContactUID         string
	Content            string
	Context            string
	EmotionalContext   string
	Sentiment          float64
	Topics             []string
	Urgency            string
	Category           string
	ActionItems        []string
	ResponseQuality    *float64
	CommunicationStyle string
	CreatedTs          int64
}

// FindMemoryEntry is the find condition for memory entries.
// Results are ordered newest first.
type FindMemoryEntry struct {
	UserID     *int32
	ContactUID *string
	Limit      *int
}

func (s *Store) CreateMemoryEntry(ctx context.Context, create *MemoryEntry) (*MemoryEntry, error) {
	return s.driver.CreateMemoryEntry(ctx, create)
}

func (s *Store) ListMemoryEntries(ctx context.Context, find *FindMemoryEntry) ([]*MemoryEntry, error) {
	return s.driver.ListMemoryEntries(ctx, find)
}
