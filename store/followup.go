package store

import (
	"context"
)

// Followup is a one-shot scheduled followup backed by a reminder.
type Followup struct {
	ID          int32
	UID         string
	UserID      int32
	ContactUID  string
	ContactName string
	ReminderUID string
	Message     string
	Status      string
	ScheduledTs int64
	CreatedTs   int64
}

// FindFollowup is the find condition for followup.
type FindFollowup struct {
	UID    *string
	UserID *int32
	Status *string
}

// UpdateFollowup is the update request for followup.
type UpdateFollowup struct {
	UID         string
	Status      *string
	ReminderUID *string
}

func (s *Store) CreateFollowup(ctx context.Context, create *Followup) (*Followup, error) {
	return s.driver.CreateFollowup(ctx, create)
}

func (s *Store) ListFollowups(ctx context.Context, find *FindFollowup) ([]*Followup, error) {
	return s.driver.ListFollowups(ctx, find)
}

// GetFollowup returns the first followup matching find, or nil.
func (s *Store) GetFollowup(ctx context.Context, find *FindFollowup) (*Followup, error) {
	list, err := s.driver.ListFollowups(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateFollowup(ctx context.Context, update *UpdateFollowup) error {
	return s.driver.UpdateFollowup(ctx, update)
}
