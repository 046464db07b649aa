package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// FollowupStatus defines the status of a scheduled followup.
type FollowupStatus string

const (
	FollowupPending   FollowupStatus = "pending"
	FollowupSent      FollowupStatus = "sent"
	FollowupCancelled FollowupStatus = "cancelled"
)

// ErrFollowupNotFound is returned when a followup does not exist or belongs to another user.
var ErrFollowupNotFound = errors.New("followup not found")

// ScheduledFollowup is a one-shot followup backed by a scheduled reminder.
type ScheduledFollowup struct {
	ID           string         `json:"id"`
	UserID       int32          `json:"userId"`
	ContactID    string         `json:"contactId"`
	ContactName  string         `json:"contactName"`
	ReminderID   string         `json:"reminderId"`
	ScheduledFor time.Time      `json:"scheduledFor"`
	Message      string         `json:"message"`
	Status       FollowupStatus `json:"status"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// FollowupStore persists followups.
type FollowupStore interface {
	CreateFollowup(ctx context.Context, f *ScheduledFollowup) error
	GetFollowup(ctx context.Context, id string) (*ScheduledFollowup, error)
	ListFollowups(ctx context.Context, userID int32, status FollowupStatus) ([]*ScheduledFollowup, error)
	UpdateFollowup(ctx context.Context, id string, update FollowupUpdate) error
}

// FollowupUpdate holds the mutable followup fields; nil fields are left unchanged.
type FollowupUpdate struct {
	Status     *FollowupStatus
	ReminderID *string
}

func statusUpdate(status FollowupStatus) FollowupUpdate {
	return FollowupUpdate{Status: &status}
}

// FollowupService manages followups on top of the reminder service.
type FollowupService struct {
	store     FollowupStore
	reminders *Service
	logger    *slog.Logger
}

// NewFollowupService creates a followup service and subscribes to reminder deliveries.
func NewFollowupService(store FollowupStore, reminders *Service) *FollowupService {
	f := &FollowupService{
		store:     store,
		reminders: reminders,
		logger:    slog.Default(),
	}
	reminders.OnDelivered(f.onDelivered)
	return f
}

// CreateFollowup schedules a followup message for contactID at at.
func (f *FollowupService) CreateFollowup(ctx context.Context, userID int32, contactID, contactName string, at time.Time, message string) (*ScheduledFollowup, error) {
	if at.IsZero() {
		return nil, fmt.Errorf("%w: scheduled time is required", ErrInvalidRequest)
	}
	scheduled := at
	followupID := shortuuid.New()

	fu := &ScheduledFollowup{
		ID:           followupID,
		UserID:       userID,
		ContactID:    contactID,
		ContactName:  contactName,
		ScheduledFor: at,
		Message:      message,
		Status:       FollowupPending,
		CreatedAt:    time.Now(),
	}
	// The followup row must exist before an immediate delivery can flip it to sent.
	if err := f.store.CreateFollowup(ctx, fu); err != nil {
		return nil, fmt.Errorf("failed to create followup: %w", err)
	}

	r, err := f.reminders.CreateReminder(ctx, &CreateReminderRequest{
		UserID:       userID,
		ContactID:    contactID,
		ContactName:  contactName,
		Message:      message,
		Type:         TypeScheduled,
		Priority:     PriorityMedium,
		ScheduledFor: &scheduled,
		Metadata:     map[string]any{"followup_id": followupID},
	})
	if err != nil {
		_ = f.store.UpdateFollowup(ctx, followupID, statusUpdate(FollowupCancelled))
		return nil, err
	}
	if err := f.store.UpdateFollowup(ctx, followupID, FollowupUpdate{ReminderID: &r.ID}); err != nil {
		return nil, fmt.Errorf("failed to link followup reminder: %w", err)
	}
	fu.ReminderID = r.ID
	if r.Status == StatusSent {
		fu.Status = FollowupSent
	}
	return fu, nil
}

// CancelFollowup cancels a pending followup and dismisses its reminder.
func (f *FollowupService) CancelFollowup(ctx context.Context, userID int32, id string) (*ScheduledFollowup, error) {
	fu, err := f.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if fu.Status != FollowupPending {
		return nil, fmt.Errorf("%w: cannot cancel followup with status %s", ErrInvalidTransition, fu.Status)
	}

	if fu.ReminderID != "" {
		if _, err := f.reminders.Dismiss(ctx, userID, fu.ReminderID); err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("failed to dismiss followup reminder: %w", err)
		}
	}
	if err := f.store.UpdateFollowup(ctx, id, statusUpdate(FollowupCancelled)); err != nil {
		return nil, fmt.Errorf("failed to cancel followup: %w", err)
	}
	fu.Status = FollowupCancelled
	return fu, nil
}

// ListFollowups lists userID's followups, optionally filtered by status.
func (f *FollowupService) ListFollowups(ctx context.Context, userID int32, status FollowupStatus) ([]*ScheduledFollowup, error) {
	return f.store.ListFollowups(ctx, userID, status)
}

func (f *FollowupService) get(ctx context.Context, userID int32, id string) (*ScheduledFollowup, error) {
	fu, err := f.store.GetFollowup(ctx, id)
	if err != nil {
		return nil, err
	}
	if fu.UserID != userID {
		return nil, fmt.Errorf("%w: %s", ErrFollowupNotFound, id)
	}
	return fu, nil
}

func (f *FollowupService) onDelivered(ctx context.Context, r *Reminder) {
	if r.Type != TypeScheduled {
		return
	}
	id, _ := r.Metadata["followup_id"].(string)
	if id == "" {
		return
	}
	if err := f.store.UpdateFollowup(ctx, id, statusUpdate(FollowupSent)); err != nil {
		f.logger.Error("failed to mark followup sent", "followup_id", id, "error", err)
	}
}

// MemoryFollowupStore is an in-memory FollowupStore.
type MemoryFollowupStore struct {
	mu        sync.RWMutex
	followups map[string]*ScheduledFollowup
}

// NewMemoryFollowupStore creates an empty store.
func NewMemoryFollowupStore() *MemoryFollowupStore {
	return &MemoryFollowupStore{followups: make(map[string]*ScheduledFollowup)}
}

// CreateFollowup stores f.
func (s *MemoryFollowupStore) CreateFollowup(ctx context.Context, f *ScheduledFollowup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *f
	s.followups[f.ID] = &c
	return nil
}

// GetFollowup returns the followup with id.
func (s *MemoryFollowupStore) GetFollowup(ctx context.Context, id string) (*ScheduledFollowup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.followups[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFollowupNotFound, id)
	}
	c := *f
	return &c, nil
}

// ListFollowups lists followups by scheduled time.
func (s *MemoryFollowupStore) ListFollowups(ctx context.Context, userID int32, status FollowupStatus) ([]*ScheduledFollowup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ScheduledFollowup
	for _, f := range s.followups {
		if f.UserID == userID && (status == "" || f.Status == status) {
			c := *f
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

// UpdateFollowup applies update to id.
func (s *MemoryFollowupStore) UpdateFollowup(ctx context.Context, id string, update FollowupUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.followups[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFollowupNotFound, id)
	}
	if update.Status != nil {
		f.Status = *update.Status
	}
	if update.ReminderID != nil {
		f.ReminderID = *update.ReminderID
	}
	return nil
}
