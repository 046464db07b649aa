// Package reminder creates, schedules and dispatches follow-up reminders, and tracks
// whether they produced a response.
package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReminderType defines the type of reminder.
type ReminderType string

const (
	TypeOverdue   ReminderType = "overdue"
	TypeQuestion  ReminderType = "question"
	TypeScheduled ReminderType = "scheduled"
	TypeUrgent    ReminderType = "urgent"
	TypeCheckin   ReminderType = "checkin"
)

// Valid reports whether t is a known reminder type.
func (t ReminderType) Valid() bool {
	switch t {
	case TypeOverdue, TypeQuestion, TypeScheduled, TypeUrgent, TypeCheckin:
		return true
	}
	return false
}

// Priority defines how prominently a reminder is delivered.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// ReminderStatus defines the status of a reminder.
// pending -> sent | dismissed; failed marks a reminder that could not be persisted.
type ReminderStatus string

const (
	StatusPending   ReminderStatus = "pending"
	StatusSent      ReminderStatus = "sent"
	StatusDismissed ReminderStatus = "dismissed"
	StatusFailed    ReminderStatus = "failed"
)

// Channel defines notification channel types.
type Channel string

const (
	ChannelBrowser  Channel = "browser"
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
	ChannelWebhook  Channel = "webhook"
)

// Metadata keys written by the service.
const (
	MetaSuppressed    = "suppressed"
	MetaDelivery      = "delivery"
	MetaFailureReason = "failure_reason"
	MetaResendCount   = "resend_count"
	MetaRespondedAt   = "responded_at"
	MetaContractID    = "contract_id"
)

var (
	// ErrNotFound is returned when a reminder does not exist or belongs to another user.
	ErrNotFound = errors.New("reminder not found")

	// ErrInvalidTransition is returned for a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid reminder status transition")

	// ErrInvalidRequest is returned when a create request is incomplete.
	ErrInvalidRequest = errors.New("invalid reminder request")
)

// Reminder represents a reminder entity.
type Reminder struct {
	ID           string         `json:"id"`
	UserID       int32          `json:"userId"`
	ContactID    string         `json:"contactId"`
	ContactName  string         `json:"contactName"`
	Type         ReminderType   `json:"type"`
	Priority     Priority       `json:"priority"`
	Message      string         `json:"message"`
	Status       ReminderStatus `json:"status"`
	CreatedAt    time.Time      `json:"createdAt"`
	ScheduledFor *time.Time     `json:"scheduledFor,omitempty"`
	SentAt       *time.Time     `json:"sentAt,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Suppressed reports whether delivery was held back by the high-priority-only setting.
func (r *Reminder) Suppressed() bool {
	v, _ := r.Metadata[MetaSuppressed].(bool)
	return v
}

func (r *Reminder) setMeta(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
}

// CreateReminderRequest represents a request to create a reminder.
type CreateReminderRequest struct {
	UserID       int32
	ContactID    string
	ContactName  string
	Message      string
	Type         ReminderType
	Priority     Priority
	ScheduledFor *time.Time // nil or past means deliver now
	Metadata     map[string]any
}

// Filter narrows reminder listings. Zero fields match everything.
type Filter struct {
	UserID    int32
	ContactID string
	Status    ReminderStatus
	Type      ReminderType
}

// ReminderStore defines the storage interface for reminders.
type ReminderStore interface {
	Create(ctx context.Context, reminder *Reminder) error
	Get(ctx context.Context, id string) (*Reminder, error)
	List(ctx context.Context, filter Filter) ([]*Reminder, error)
	Update(ctx context.Context, reminder *Reminder) error
	// UpdateIfStatus writes reminder only while the stored status is still expected,
	// otherwise it returns ErrInvalidTransition.
	UpdateIfStatus(ctx context.Context, reminder *Reminder, expected ReminderStatus) error
	Delete(ctx context.Context, id string) error
}

// generateID creates a unique reminder ID.
func generateID() string {
	return uuid.New().String()[:12]
}
