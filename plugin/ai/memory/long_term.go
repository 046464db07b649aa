package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/hrygo/followup/store"
)

// PersistentEntryStore keeps memory entries in the relational store.
type PersistentEntryStore struct {
	store *store.Store
}

// NewPersistentEntryStore creates an entry store over s.
func NewPersistentEntryStore(s *store.Store) *PersistentEntryStore {
	return &PersistentEntryStore{store: s}
}

// Append stores a new entry.
func (p *PersistentEntryStore) Append(ctx context.Context, entry MemoryEntry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := p.store.CreateMemoryEntry(ctx, &store.MemoryEntry{
		UID:                entry.ID,
		UserID:             entry.UserID,
		ContactUID:         entry.ContactID,
		Content:            entry.Content,
		Context:            entry.Context,
		EmotionalContext:   entry.EmotionalContext,
		Sentiment:          entry.Sentiment,
		Topics:             entry.Topics,
		Urgency:            entry.Urgency,
		Category:           entry.Category,
		ActionItems:        entry.ActionItems,
		ResponseQuality:    entry.ResponseQuality,
		CommunicationStyle: entry.CommunicationStyle,
		CreatedTs:          ts.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to persist memory entry: %w", err)
	}
	return nil
}

// List returns up to limit most recent entries, oldest first.
func (p *PersistentEntryStore) List(ctx context.Context, key Key, limit int) ([]MemoryEntry, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	rows, err := p.store.ListMemoryEntries(ctx, &store.FindMemoryEntry{
		UserID:     &key.UserID,
		ContactUID: &key.ContactID,
		Limit:      &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list memory entries: %w", err)
	}

	// rows arrive newest first
	entries := make([]MemoryEntry, len(rows))
	for i, r := range rows {
		entries[len(rows)-1-i] = MemoryEntry{
			ID:                 r.UID,
			UserID:             r.UserID,
			ContactID:          r.ContactUID,
			Content:            r.Content,
			Context:            r.Context,
			EmotionalContext:   r.EmotionalContext,
			Timestamp:          time.Unix(r.CreatedTs, 0),
			Sentiment:          r.Sentiment,
			Topics:             r.Topics,
			Urgency:            r.Urgency,
			Category:           r.Category,
			ActionItems:        r.ActionItems,
			ResponseQuality:    r.ResponseQuality,
			CommunicationStyle: r.CommunicationStyle,
		}
	}
	return entries, nil
}

var _ EntryStore = (*PersistentEntryStore)(nil)
