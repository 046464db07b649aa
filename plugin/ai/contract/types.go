// Package contract schedules recurring check-ins with contacts and emits a
// check-in reminder each time one comes due.
package contract

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a contract.
// active <-> paused; active | paused -> completed.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

var (
	// ErrNotFound is returned when a contract does not exist or belongs to another user.
	ErrNotFound = errors.New("contract not found")

	// ErrInvalidContract is returned for malformed create requests.
	ErrInvalidContract = errors.New("invalid contract")

	// ErrInvalidTransition is returned for a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid contract status transition")
)

// Contract is a recurring check-in obligation with a contact.
type Contract struct {
	ID          string         `json:"id"`
	UserID      int32          `json:"userId"`
	ContactID   string         `json:"contactId"`
	ContactName string         `json:"contactName"`
	Frequency   Frequency      `json:"frequency"`
	TimeOfDay   TimeOfDay      `json:"timeOfDay"`
	DaysOfWeek  []time.Weekday `json:"daysOfWeek"`
	Status      Status         `json:"status"`
	LastCheckin *time.Time     `json:"lastCheckin,omitempty"`
	NextCheckin time.Time      `json:"nextCheckin"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// CreateContractRequest describes a new contract.
type CreateContractRequest struct {
	UserID      int32
	ContactID   string
	ContactName string
	Frequency   string
	TimeOfDay   string
	DaysOfWeek  []time.Weekday
}

// Filter narrows contract listings. Zero fields match everything.
type Filter struct {
	UserID    int32
	ContactID string
	Status    Status
	// DueBy keeps contracts whose next check-in is at or before the time.
	DueBy *time.Time
}

// Store persists contracts.
type Store interface {
	Create(ctx context.Context, c *Contract) error
	Get(ctx context.Context, id string) (*Contract, error)
	// List returns matches ordered by next check-in.
	List(ctx context.Context, filter Filter) ([]*Contract, error)
	Update(ctx context.Context, c *Contract) error
}
