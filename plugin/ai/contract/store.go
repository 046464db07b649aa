package contract

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu        sync.RWMutex
	contracts map[string]*Contract
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{contracts: make(map[string]*Contract)}
}

func (s *MemoryStore) Create(ctx context.Context, c *Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts[c.ID] = clone(c)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return clone(c), nil
}

func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]*Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Contract, 0)
	for _, c := range s.contracts {
		if matches(c, filter) {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextCheckin.Equal(out[j].NextCheckin) {
			return out[i].NextCheckin.Before(out[j].NextCheckin)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, c *Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[c.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, c.ID)
	}
	s.contracts[c.ID] = clone(c)
	return nil
}

func matches(c *Contract, f Filter) bool {
	if f.UserID != 0 && c.UserID != f.UserID {
		return false
	}
	if f.ContactID != "" && c.ContactID != f.ContactID {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.DueBy != nil && c.NextCheckin.After(*f.DueBy) {
		return false
	}
	return true
}

func clone(c *Contract) *Contract {
	out := *c
	out.DaysOfWeek = append([]time.Weekday(nil), c.DaysOfWeek...)
	if c.LastCheckin != nil {
		last := *c.LastCheckin
		out.LastCheckin = &last
	}
	return &out
}
