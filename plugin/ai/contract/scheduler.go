package contract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/followup/plugin/ai/reminder"
)

// ReminderEmitter creates the check-in reminder for a fired contract.
// *reminder.Service satisfies it.
type ReminderEmitter interface {
	CreateReminder(ctx context.Context, req *reminder.CreateReminderRequest) (*reminder.Reminder, error)
}

// Scheduler computes contract due dates and fires due contracts.
type Scheduler struct {
	store    Store
	emitter  ReminderEmitter
	settings reminder.SettingsProvider
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation sets the zone time-of-day is applied in. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScheduler creates a scheduler. settings decides whether check-ins emit reminders;
// nil means the reminder defaults.
func NewScheduler(store Store, emitter ReminderEmitter, settings reminder.SettingsProvider, opts ...Option) *Scheduler {
	if settings == nil {
		settings = reminder.StaticSettings(reminder.DefaultSettings())
	}
	s := &Scheduler{
		store:    store,
		emitter:  emitter,
		settings: settings,
		location: time.UTC,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates req and stores an active contract whose first check-in is one period from now.
func (s *Scheduler) Create(ctx context.Context, req CreateContractRequest) (*Contract, error) {
	if req.UserID == 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidContract)
	}
	if req.ContactID == "" {
		return nil, fmt.Errorf("%w: contact id is required", ErrInvalidContract)
	}
	frequency, err := ParseFrequency(req.Frequency)
	if err != nil {
		return nil, err
	}
	timeOfDay, err := ParseTimeOfDay(req.TimeOfDay)
	if err != nil {
		return nil, err
	}
	days, err := normalizeWeekdays(req.DaysOfWeek)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := &Contract{
		ID:          shortuuid.New(),
		UserID:      req.UserID,
		ContactID:   req.ContactID,
		ContactName: req.ContactName,
		Frequency:   frequency,
		TimeOfDay:   timeOfDay,
		DaysOfWeek:  days,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c.NextCheckin = s.Advance(c, now)

	if err := s.store.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create contract: %w", err)
	}
	s.logger.Info("contract created",
		"contract_id", c.ID,
		"user_id", c.UserID,
		"contact_id", c.ContactID,
		"frequency", c.Frequency,
		"next_checkin", c.NextCheckin,
	)
	return c, nil
}

// Advance returns the check-in after c's last one: one frequency period past LastCheckin
// (now when there is none) at TimeOfDay, rolled forward onto an allowed weekday.
// The result does not depend on now once LastCheckin is set.
func (s *Scheduler) Advance(c *Contract, now time.Time) time.Time {
	base := now
	if c.LastCheckin != nil {
		base = *c.LastCheckin
	}
	return s.periodAfter(c, base)
}

func (s *Scheduler) periodAfter(c *Contract, base time.Time) time.Time {
	next := c.TimeOfDay.On(c.Frequency.Next(base.In(s.location)))
	return rollToWeekday(next, c.DaysOfWeek)
}

// DueContracts returns active contracts of every user whose next check-in is at or before now.
func (s *Scheduler) DueContracts(ctx context.Context, now time.Time) ([]*Contract, error) {
	list, err := s.store.List(ctx, Filter{Status: StatusActive, DueBy: &now})
	if err != nil {
		return nil, fmt.Errorf("failed to list due contracts: %w", err)
	}
	return list, nil
}

// Fire records a check-in at now, moves NextCheckin on from the firing instant and,
// when the user allows scheduled reminders, emits a checkin reminder.
// If the reminder cannot be created the contract is left untouched so the next tick retries.
func (s *Scheduler) Fire(ctx context.Context, c *Contract, now time.Time) (*reminder.Reminder, error) {
	if c.Status != StatusActive {
		return nil, fmt.Errorf("%w: cannot fire contract with status %s", ErrInvalidTransition, c.Status)
	}

	settings, err := s.settings.GetSettings(ctx, c.UserID)
	if err != nil {
		s.logger.Warn("failed to load settings, using defaults", "user_id", c.UserID, "error", err)
		settings = reminder.DefaultSettings()
	}

	// Persist the advance before emitting; roll it back if the emit fails.
	prevLast, prevNext, prevUpdated := c.LastCheckin, c.NextCheckin, c.UpdatedAt
	restore := func() {
		c.LastCheckin, c.NextCheckin, c.UpdatedAt = prevLast, prevNext, prevUpdated
	}

	fired := now
	c.LastCheckin = &fired
	c.NextCheckin = s.Advance(c, now)
	c.UpdatedAt = now
	if err := s.store.Update(ctx, c); err != nil {
		restore()
		return nil, fmt.Errorf("failed to update contract: %w", err)
	}

	var emitted *reminder.Reminder
	if settings.ScheduledReminders && s.emitter != nil {
		emitted, err = s.emitter.CreateReminder(ctx, &reminder.CreateReminderRequest{
			UserID:      c.UserID,
			ContactID:   c.ContactID,
			ContactName: displayName(c),
			Message:     fmt.Sprintf("Time for your %s check-in with %s", c.Frequency, displayName(c)),
			Type:        reminder.TypeCheckin,
			Priority:    reminder.PriorityMedium,
			Metadata:    map[string]any{reminder.MetaContractID: c.ID},
		})
		if err != nil {
			restore()
			if rollbackErr := s.store.Update(ctx, c); rollbackErr != nil {
				s.logger.Error("failed to roll back contract after emit failure", "contract_id", c.ID, "error", rollbackErr)
			}
			return nil, fmt.Errorf("failed to emit check-in for contract %s: %w", c.ID, err)
		}
	}

	s.logger.Debug("contract fired",
		"contract_id", c.ID,
		"emitted", emitted != nil,
		"next_checkin", c.NextCheckin,
	)
	return emitted, nil
}

// FireDue fires every due contract and returns how many fired. A failing contract is
// logged and does not stop the rest.
func (s *Scheduler) FireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.DueContracts(ctx, now)
	if err != nil {
		return 0, err
	}
	fired := 0
	for _, c := range due {
		if _, err := s.Fire(ctx, c, now); err != nil {
			s.logger.Error("failed to fire contract", "contract_id", c.ID, "user_id", c.UserID, "error", err)
			continue
		}
		fired++
	}
	return fired, nil
}

// Get returns a contract owned by userID.
func (s *Scheduler) Get(ctx context.Context, userID int32, id string) (*Contract, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

// List returns userID's contracts, optionally filtered by status.
func (s *Scheduler) List(ctx context.Context, userID int32, status Status) ([]*Contract, error) {
	return s.store.List(ctx, Filter{UserID: userID, Status: status})
}

// Pause stops an active contract from firing.
func (s *Scheduler) Pause(ctx context.Context, userID int32, id string) (*Contract, error) {
	return s.transition(ctx, userID, id, StatusPaused, StatusActive)
}

// Resume reactivates a paused contract. A check-in that fell due while paused is
// skipped: the next one is computed from now.
func (s *Scheduler) Resume(ctx context.Context, userID int32, id string) (*Contract, error) {
	return s.transition(ctx, userID, id, StatusActive, StatusPaused)
}

// Complete ends a contract for good.
func (s *Scheduler) Complete(ctx context.Context, userID int32, id string) (*Contract, error) {
	return s.transition(ctx, userID, id, StatusCompleted, StatusActive, StatusPaused)
}

func (s *Scheduler) transition(ctx context.Context, userID int32, id string, to Status, from ...Status) (*Contract, error) {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, f := range from {
		if c.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
	}

	now := s.now()
	if to == StatusActive && !c.NextCheckin.After(now) {
		c.NextCheckin = s.periodAfter(c, now)
	}
	c.Status = to
	c.UpdatedAt = now
	if err := s.store.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update contract: %w", err)
	}
	return c, nil
}

func displayName(c *Contract) string {
	if c.ContactName != "" {
		return c.ContactName
	}
	return c.ContactID
}
