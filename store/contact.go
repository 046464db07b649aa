package store

import (
	"context"
)

// Contact is a person the user converses with.
type Contact struct {
	ID        int32
	UID       string
	UserID    int32
	Name      string
	Platform  string
	Category  string
	CreatedTs int64
}

// FindContact is the find condition for contact.
type FindContact struct {
	UID    *string
	UserID *int32
}

// DeleteContact is the delete request for contact.
type DeleteContact struct {
	UID    string
	UserID int32
}

func (s *Store) CreateContact(ctx context.Context, create *Contact) (*Contact, error) {
	return s.driver.CreateContact(ctx, create)
}

func (s *Store) ListContacts(ctx context.Context, find *FindContact) ([]*Contact, error) {
	return s.driver.ListContacts(ctx, find)
}

// GetContact returns the first contact matching find, or nil.
func (s *Store) GetContact(ctx context.Context, find *FindContact) (*Contact, error) {
	list, err := s.driver.ListContacts(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) DeleteContact(ctx context.Context, delete *DeleteContact) error {
	return s.driver.DeleteContact(ctx, delete)
}

// ListContactOwners returns the ids of users owning at least one contact.
func (s *Store) ListContactOwners(ctx context.Context) ([]int32, error) {
	return s.driver.ListContactOwners(ctx)
}
