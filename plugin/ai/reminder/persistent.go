package reminder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hrygo/followup/store"
)

// PersistentStore keeps reminders, followups and reminder settings in the relational store.
type PersistentStore struct {
	store    *store.Store
	defaults Settings
}

// NewPersistentStore creates a store adapter over s. defaults apply to users
// that have never saved settings.
func NewPersistentStore(s *store.Store, defaults Settings) *PersistentStore {
	return &PersistentStore{store: s, defaults: defaults.Normalize()}
}

var (
	_ ReminderStore    = (*PersistentStore)(nil)
	_ FollowupStore    = (*PersistentStore)(nil)
	_ SettingsProvider = (*PersistentStore)(nil)
)

// ========== Reminders ==========

// Create inserts a reminder.
func (p *PersistentStore) Create(ctx context.Context, r *Reminder) error {
	payload, err := encodeMetadata(r.Metadata)
	if err != nil {
		return err
	}
	_, err = p.store.CreateReminder(ctx, &store.Reminder{
		UID:         r.ID,
		UserID:      r.UserID,
		ContactUID:  r.ContactID,
		ContactName: r.ContactName,
		Type:        string(r.Type),
		Priority:    string(r.Priority),
		Message:     r.Message,
		Status:      string(r.Status),
		CreatedTs:   r.CreatedAt.Unix(),
		ScheduledTs: unixPtr(r.ScheduledFor),
		SentTs:      unixPtr(r.SentAt),
		Payload:     payload,
	})
	if err != nil {
		return fmt.Errorf("failed to persist reminder: %w", err)
	}
	return nil
}

// Get loads the reminder with id.
func (p *PersistentStore) Get(ctx context.Context, id string) (*Reminder, error) {
	row, err := p.store.GetReminder(ctx, &store.FindReminder{UID: &id})
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return reminderFromRow(row), nil
}

// List returns reminders matching filter, oldest first.
func (p *PersistentStore) List(ctx context.Context, filter Filter) ([]*Reminder, error) {
	find := &store.FindReminder{}
	if filter.UserID != 0 {
		find.UserID = &filter.UserID
	}
	if filter.ContactID != "" {
		find.ContactUID = &filter.ContactID
	}
	if filter.Status != "" {
		status := string(filter.Status)
		find.Status = &status
	}
	if filter.Type != "" {
		typ := string(filter.Type)
		find.Type = &typ
	}
	rows, err := p.store.ListReminders(ctx, find)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	list := make([]*Reminder, 0, len(rows))
	for _, row := range rows {
		list = append(list, reminderFromRow(row))
	}
	return list, nil
}

// Update writes the mutable fields of r.
func (p *PersistentStore) Update(ctx context.Context, r *Reminder) error {
	return p.update(ctx, r, nil)
}

// UpdateIfStatus writes the mutable fields of r while the row still has the expected status.
func (p *PersistentStore) UpdateIfStatus(ctx context.Context, r *Reminder, expected ReminderStatus) error {
	want := string(expected)
	err := p.update(ctx, r, &want)
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	// No row matched: either it is gone or its status moved on.
	current, getErr := p.Get(ctx, r.ID)
	if getErr != nil {
		return getErr
	}
	return fmt.Errorf("%w: reminder %s is %s, not %s", ErrInvalidTransition, r.ID, current.Status, expected)
}

func (p *PersistentStore) update(ctx context.Context, r *Reminder, expected *string) error {
	payload, err := encodeMetadata(r.Metadata)
	if err != nil {
		return err
	}
	status, priority := string(r.Status), string(r.Priority)
	err = p.store.UpdateReminder(ctx, &store.UpdateReminder{
		UID:            r.ID,
		ExpectedStatus: expected,
		Status:         &status,
		Priority:       &priority,
		Message:        &r.Message,
		ScheduledTs:    unixPtr(r.ScheduledFor),
		SentTs:         unixPtr(r.SentAt),
		Payload:        &payload,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, r.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	return nil
}

// Delete removes the reminder with id.
func (p *PersistentStore) Delete(ctx context.Context, id string) error {
	if err := p.store.DeleteReminder(ctx, &store.DeleteReminder{UID: id}); err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	return nil
}

func reminderFromRow(row *store.Reminder) *Reminder {
	r := &Reminder{
		ID:           row.UID,
		UserID:       row.UserID,
		ContactID:    row.ContactUID,
		ContactName:  row.ContactName,
		Type:         ReminderType(row.Type),
		Priority:     Priority(row.Priority),
		Message:      row.Message,
		Status:       ReminderStatus(row.Status),
		CreatedAt:    time.Unix(row.CreatedTs, 0),
		ScheduledFor: timePtr(row.ScheduledTs),
		SentAt:       timePtr(row.SentTs),
	}
	if row.Payload != "" && row.Payload != "{}" {
		var meta map[string]any
		if err := json.Unmarshal([]byte(row.Payload), &meta); err == nil {
			r.Metadata = meta
		}
	}
	return r
}

func encodeMetadata(meta map[string]any) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	bytes, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode reminder metadata: %w", err)
	}
	return string(bytes), nil
}

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ts := t.Unix()
	return &ts
}

func timePtr(ts *int64) *time.Time {
	if ts == nil {
		return nil
	}
	t := time.Unix(*ts, 0)
	return &t
}

// ========== Followups ==========

// CreateFollowup inserts f.
func (p *PersistentStore) CreateFollowup(ctx context.Context, f *ScheduledFollowup) error {
	_, err := p.store.CreateFollowup(ctx, &store.Followup{
		UID:         f.ID,
		UserID:      f.UserID,
		ContactUID:  f.ContactID,
		ContactName: f.ContactName,
		ReminderUID: f.ReminderID,
		Message:     f.Message,
		Status:      string(f.Status),
		ScheduledTs: f.ScheduledFor.Unix(),
		CreatedTs:   f.CreatedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to persist followup: %w", err)
	}
	return nil
}

// GetFollowup loads the followup with id.
func (p *PersistentStore) GetFollowup(ctx context.Context, id string) (*ScheduledFollowup, error) {
	row, err := p.store.GetFollowup(ctx, &store.FindFollowup{UID: &id})
	if err != nil {
		return nil, fmt.Errorf("failed to get followup: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s", ErrFollowupNotFound, id)
	}
	return followupFromRow(row), nil
}

// ListFollowups lists userID's followups by scheduled time; an empty status matches all.
func (p *PersistentStore) ListFollowups(ctx context.Context, userID int32, status FollowupStatus) ([]*ScheduledFollowup, error) {
	find := &store.FindFollowup{UserID: &userID}
	if status != "" {
		s := string(status)
		find.Status = &s
	}
	rows, err := p.store.ListFollowups(ctx, find)
	if err != nil {
		return nil, fmt.Errorf("failed to list followups: %w", err)
	}
	list := make([]*ScheduledFollowup, 0, len(rows))
	for _, row := range rows {
		list = append(list, followupFromRow(row))
	}
	return list, nil
}

// UpdateFollowup applies update to the followup with id.
func (p *PersistentStore) UpdateFollowup(ctx context.Context, id string, update FollowupUpdate) error {
	u := &store.UpdateFollowup{UID: id, ReminderUID: update.ReminderID}
	if update.Status != nil {
		s := string(*update.Status)
		u.Status = &s
	}
	err := p.store.UpdateFollowup(ctx, u)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrFollowupNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update followup: %w", err)
	}
	return nil
}

func followupFromRow(row *store.Followup) *ScheduledFollowup {
	return &ScheduledFollowup{
		ID:           row.UID,
		UserID:       row.UserID,
		ContactID:    row.ContactUID,
		ContactName:  row.ContactName,
		ReminderID:   row.ReminderUID,
		ScheduledFor: time.Unix(row.ScheduledTs, 0),
		Message:      row.Message,
		Status:       FollowupStatus(row.Status),
		CreatedAt:    time.Unix(row.CreatedTs, 0),
	}
}

// ========== Settings ==========

// GetSettings returns userID's saved settings, or the defaults.
func (p *PersistentStore) GetSettings(ctx context.Context, userID int32) (Settings, error) {
	row, err := p.store.GetUserSetting(ctx, userID, store.UserSettingKeyReminder)
	if err != nil {
		return p.defaults, fmt.Errorf("failed to load settings: %w", err)
	}
	if row == nil {
		return p.defaults, nil
	}
	settings := p.defaults
	if err := json.Unmarshal([]byte(row.Value), &settings); err != nil {
		return p.defaults, fmt.Errorf("failed to decode settings: %w", err)
	}
	return settings.Normalize(), nil
}

// SaveSettings stores settings for userID after normalizing them.
func (p *PersistentStore) SaveSettings(ctx context.Context, userID int32, settings Settings) (Settings, error) {
	settings = settings.Normalize()
	bytes, err := json.Marshal(settings)
	if err != nil {
		return settings, fmt.Errorf("failed to encode settings: %w", err)
	}
	if _, err := p.store.UpsertUserSetting(ctx, &store.UserSetting{
		UserID: userID,
		Key:    store.UserSettingKeyReminder,
		Value:  string(bytes),
	}); err != nil {
		return settings, fmt.Errorf("failed to save settings: %w", err)
	}
	return settings, nil
}
