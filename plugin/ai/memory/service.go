package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// Manager implements MemoryService over an EntryStore.
type Manager struct {
	store    EntryStore
	analyzer *Analyzer
	now      func() time.Time
}

// NewManager creates a memory manager.
// store: entry store, usually a CachedStore (nil falls back to an in-memory store)
func NewManager(store EntryStore, analyzer *Analyzer) *Manager {
	if store == nil {
		slog.Warn("memory manager initialized without persistent store (entries kept in process only)")
		store = NewInMemoryEntryStore(DefaultHistoryLimit)
	}
	if analyzer == nil {
		analyzer = NewAnalyzer(nil)
	}
	return &Manager{
		store:    store,
		analyzer: analyzer,
		now:      time.Now,
	}
}

// ========== Writes ==========

// Store appends an entry and returns its id.
func (m *Manager) Store(ctx context.Context, userID int32, contactID string, entry MemoryEntry) (string, error) {
	if contactID == "" {
		return "", fmt.Errorf("contact id is required")
	}
	if entry.ID == "" {
		entry.ID = shortuuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = m.now()
	}
	if entry.Topics == nil {
		entry.Topics = []string{}
	}
	if entry.ActionItems == nil {
		entry.ActionItems = []string{}
	}
	entry.UserID = userID
	entry.ContactID = contactID

	if err := m.store.Append(ctx, entry); err != nil {
		return "", fmt.Errorf("failed to store memory entry: %w", err)
	}
	return entry.ID, nil
}

// Record analyzes raw message text and stores the resulting entry.
func (m *Manager) Record(ctx context.Context, userID int32, contactID, content, category string, ts time.Time) (string, error) {
	return m.Store(ctx, userID, contactID, m.analyzer.Analyze(content, category, ts))
}

// ========== Reads ==========

// Get returns the conversation memory with a recomputed summary.
func (m *Manager) Get(ctx context.Context, userID int32, contactID string) (*ConversationMemory, error) {
	entries, err := m.store.List(ctx, Key{UserID: userID, ContactID: contactID}, DefaultHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}
	return &ConversationMemory{
		UserID:    userID,
		ContactID: contactID,
		Entries:   entries,
		Summary:   Summarize(entries, m.now()),
	}, nil
}

// Search returns entries containing any query term, newest first.
func (m *Manager) Search(ctx context.Context, userID int32, contactID string, query string, limit int) ([]MemoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []MemoryEntry{}, nil
	}

	entries, err := m.store.List(ctx, Key{UserID: userID, ContactID: contactID}, DefaultHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}

	results := []MemoryEntry{}
	for i := len(entries) - 1; i >= 0 && len(results) < limit; i-- {
		haystack := searchText(entries[i])
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				results = append(results, entries[i])
				break
			}
		}
	}
	return results, nil
}

// RelevantMemories ranks entries by the share of their topics found in contextText.
func (m *Manager) RelevantMemories(ctx context.Context, userID int32, contactID string, contextText string, limit int) ([]MemoryEntry, error) {
	if limit <= 0 {
		limit = 5
	}
	tokens := map[string]struct{}{}
	for _, w := range wordPattern.FindAllString(strings.ToLower(contextText), -1) {
		tokens[w] = struct{}{}
	}
	if len(tokens) == 0 {
		return []MemoryEntry{}, nil
	}

	entries, err := m.store.List(ctx, Key{UserID: userID, ContactID: contactID}, DefaultHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}

	type scored struct {
		entry MemoryEntry
		score float64
	}
	var candidates []scored
	for _, e := range entries {
		if len(e.Topics) == 0 {
			continue
		}
		hits := 0
		for _, t := range e.Topics {
			if _, ok := tokens[strings.ToLower(t)]; ok {
				hits++
			}
		}
		if hits > 0 {
			candidates = append(candidates, scored{entry: e, score: float64(hits) / float64(len(e.Topics))})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entry.Timestamp.After(candidates[j].entry.Timestamp)
	})

	results := make([]MemoryEntry, 0, limit)
	for i := 0; i < len(candidates) && i < limit; i++ {
		results = append(results, candidates[i].entry)
	}
	return results, nil
}

func searchText(e MemoryEntry) string {
	return strings.ToLower(e.Content + " " + e.Context + " " + e.EmotionalContext + " " + strings.Join(e.Topics, " "))
}

var _ MemoryService = (*Manager)(nil)
