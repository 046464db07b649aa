package store

import (
	"context"
)

// CommunicationContract is a recurring check-in obligation with a contact.
// DaysOfWeek is a comma separated list of weekday numbers (0 = Sunday).
type CommunicationContract struct {
	ID            int32
	UID           string
	UserID        int32
	ContactUID    string
	ContactName   string
	Frequency     string
	TimeOfDay     string
	DaysOfWeek    string
	Status        string
	LastCheckinTs *int64
	NextCheckinTs int64
	CreatedTs     int64
	UpdatedTs     int64
}

// FindCommunicationContract is the find condition for communication contracts.
type FindCommunicationContract struct {
	UID        *string
	UserID     *int32
	ContactUID *string
	Status     *string
	// NextCheckinBefore keeps contracts with next_checkin_ts <= the given time.
	NextCheckinBefore *int64
}

// UpdateCommunicationContract is the update request for communication contracts.
type UpdateCommunicationContract struct {
	UID              string
	Status           *string
	LastCheckinTs    *int64
	// ClearLastCheckin sets last_checkin_ts to NULL; LastCheckinTs takes precedence.
	ClearLastCheckin bool
	NextCheckinTs    *int64
	UpdatedTs        *int64
}

func (s *Store) CreateCommunicationContract(ctx context.Context, create *CommunicationContract) (*CommunicationContract, error) {
	return s.driver.CreateCommunicationContract(ctx, create)
}

func (s *Store) ListCommunicationContracts(ctx context.Context, find *FindCommunicationContract) ([]*CommunicationContract, error) {
	return s.driver.ListCommunicationContracts(ctx, find)
}

// GetCommunicationContract returns the first contract matching find, or nil.
func (s *Store) GetCommunicationContract(ctx context.Context, find *FindCommunicationContract) (*CommunicationContract, error) {
	list, err := s.driver.ListCommunicationContracts(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateCommunicationContract(ctx context.Context, update *UpdateCommunicationContract) error {
	return s.driver.UpdateCommunicationContract(ctx, update)
}
