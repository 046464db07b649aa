package reminder

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of ReminderStore.
type MemoryStore struct {
	reminders map[string]*Reminder
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory reminder store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reminders: make(map[string]*Reminder),
	}
}

// Create stores a new reminder.
func (s *MemoryStore) Create(ctx context.Context, reminder *Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reminders[reminder.ID]; exists {
		return fmt.Errorf("reminder already exists: %s", reminder.ID)
	}

	s.reminders[reminder.ID] = clone(reminder)
	return nil
}

// Get retrieves a reminder by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reminder, ok := s.reminders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return clone(reminder), nil
}

// List retrieves reminders matching filter, oldest first.
func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]*Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Reminder
	for _, r := range s.reminders {
		if matches(r, filter) {
			result = append(result, clone(r))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Update replaces an existing reminder.
func (s *MemoryStore) Update(ctx context.Context, reminder *Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reminders[reminder.ID]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, reminder.ID)
	}
	s.reminders[reminder.ID] = clone(reminder)
	return nil
}

// UpdateIfStatus replaces an existing reminder only if its stored status is expected.
func (s *MemoryStore) UpdateIfStatus(ctx context.Context, reminder *Reminder, expected ReminderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.reminders[reminder.ID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, reminder.ID)
	}
	if current.Status != expected {
		return fmt.Errorf("%w: reminder %s is %s, not %s", ErrInvalidTransition, reminder.ID, current.Status, expected)
	}
	s.reminders[reminder.ID] = clone(reminder)
	return nil
}

// Delete removes a reminder.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reminders[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.reminders, id)
	return nil
}

func matches(r *Reminder, f Filter) bool {
	if f.UserID != 0 && r.UserID != f.UserID {
		return false
	}
	if f.ContactID != "" && r.ContactID != f.ContactID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	return true
}

func clone(r *Reminder) *Reminder {
	c := *r
	if r.Metadata != nil {
		c.Metadata = maps.Clone(r.Metadata)
	}
	if r.ScheduledFor != nil {
		t := *r.ScheduledFor
		c.ScheduledFor = &t
	}
	if r.SentAt != nil {
		t := *r.SentAt
		c.SentAt = &t
	}
	return &c
}

var _ ReminderStore = (*MemoryStore)(nil)
