// Package memory keeps a rolling, queryable history per (user, contact) and derives a
// context summary from it on every read.
package memory

import (
	"context"
	"time"
)

// MemoryService defines the conversation memory interface.
// Consumers: HTTP API (message ingestion, memory views), reply drafting.
type MemoryService interface {
	// ========== Writes ==========

	// Store appends an entry for (userID, contactID) and returns its id.
	// Entries are append-only.
	Store(ctx context.Context, userID int32, contactID string, entry MemoryEntry) (string, error)

	// ========== Reads ==========

	// Get returns the recent entries and a freshly computed summary.
	Get(ctx context.Context, userID int32, contactID string) (*ConversationMemory, error)

	// Search returns entries whose text contains any query term, newest first.
	// limit: maximum number of results, recommended 10
	Search(ctx context.Context, userID int32, contactID string, query string, limit int) ([]MemoryEntry, error)

	// RelevantMemories ranks entries by topic overlap with the given context text.
	// Only entries with a positive score are returned; ties go to the newer entry.
	RelevantMemories(ctx context.Context, userID int32, contactID string, context string, limit int) ([]MemoryEntry, error)
}

// MemoryEntry is one remembered interaction.
type MemoryEntry struct {
	ID                 string    `json:"id"`
	UserID             int32     `json:"userId"`
	ContactID          string    `json:"contactId"`
	Content            string    `json:"content"`
	Context            string    `json:"context,omitempty"`
	EmotionalContext   string    `json:"emotionalContext,omitempty"` // positive/negative/concerned/excited/neutral
	Timestamp          time.Time `json:"timestamp"`
	Sentiment          float64   `json:"sentiment"` // -1..1
	Topics             []string  `json:"topics"`
	Urgency            string    `json:"urgency"` // low/medium/high
	Category           string    `json:"category,omitempty"`
	ActionItems        []string  `json:"actionItems"`
	ResponseQuality    *float64  `json:"responseQuality,omitempty"` // 0-1
	CommunicationStyle string    `json:"communicationStyle,omitempty"`
}

// ContextSummary is derived from recent entries and never stored.
type ContextSummary struct {
	KeyTopics            []string  `json:"keyTopics"`
	EmotionalPatterns    []string  `json:"emotionalPatterns"`
	CommunicationStyle   string    `json:"communicationStyle"`
	RelationshipStrength float64   `json:"relationshipStrength"` // 0-100
	LastInteraction      time.Time `json:"lastInteraction"`
	PendingItems         []string  `json:"pendingItems"`
}

// ConversationMemory is the memory of one (user, contact) pair.
type ConversationMemory struct {
	UserID    int32          `json:"userId"`
	ContactID string         `json:"contactId"`
	Entries   []MemoryEntry  `json:"entries"` // oldest first
	Summary   ContextSummary `json:"summary"`
}

// Key identifies a conversation.
type Key struct {
	UserID    int32
	ContactID string
}
