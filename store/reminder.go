package store

import (
	"context"
)

// Reminder is the persisted form of a follow-up reminder.
// Payload holds the JSON encoded metadata.
type Reminder struct {
	ID          int32
	UID         string
	UserID      int32
	ContactUID  string
	ContactName string
	Type        string
	Priority    string
	Message     string
	Status      string
	CreatedTs   int64
	ScheduledTs *int64
	SentTs      *int64
	Payload     string
}

// FindReminder is the find condition for reminder.
type FindReminder struct {
	UID        *string
	UserID     *int32
	ContactUID *string
	Status     *string
	Type       *string
}

// UpdateReminder is the update request for reminder.
type UpdateReminder struct {
	UID            string
	// ExpectedStatus, when set, limits the update to a row still in that status.
	ExpectedStatus *string
	Status         *string
	Priority       *string
	Message        *string
	ScheduledTs    *int64
	SentTs         *int64
	Payload        *string
}

// DeleteReminder is the delete request for reminder.
type DeleteReminder struct {
	UID string
}

func (s *Store) CreateReminder(ctx context.Context, create *Reminder) (*Reminder, error) {
	return s.driver.CreateReminder(ctx, create)
}

func (s *Store) ListReminders(ctx context.Context, find *FindReminder) ([]*Reminder, error) {
	return s.driver.ListReminders(ctx, find)
}

// GetReminder returns the first reminder matching find, or nil.
func (s *Store) GetReminder(ctx context.Context, find *FindReminder) (*Reminder, error) {
	list, err := s.driver.ListReminders(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateReminder(ctx context.Context, update *UpdateReminder) error {
	return s.driver.UpdateReminder(ctx, update)
}

func (s *Store) DeleteReminder(ctx context.Context, delete *DeleteReminder) error {
	return s.driver.DeleteReminder(ctx, delete)
}
