package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DeliveryHook is called after a reminder has been marked sent.
type DeliveryHook func(ctx context.Context, r *Reminder)

// Service creates reminders and drives them through pending -> sent | dismissed.
type Service struct {
	store      ReminderStore
	dispatcher *NotificationDispatcher
	settings   SettingsProvider
	tracker    *EffectivenessTracker
	queue      *DelayQueue
	now        func() time.Time
	logger     *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	hooks    []DeliveryHook
}

// NewService creates a new reminder service.
// tracker may be nil to disable effectiveness tracking.
func NewService(store ReminderStore, dispatcher *NotificationDispatcher, settings SettingsProvider, tracker *EffectivenessTracker) *Service {
	if dispatcher == nil {
		dispatcher = NewNotificationDispatcher(0)
	}
	if settings == nil {
		settings = StaticSettings(DefaultSettings())
	}
	s := &Service{
		store:      store,
		dispatcher: dispatcher,
		settings:   settings,
		tracker:    tracker,
		now:        time.Now,
		logger:     slog.Default(),
		inflight:   make(map[string]struct{}),
	}
	s.queue = NewDelayQueue(func(ctx context.Context, id string) {
		if _, err := s.fire(ctx, id); err != nil {
			s.logger.Error("deferred reminder delivery failed", "reminder_id", id, "error", err)
		}
	})
	return s
}

// SetLogger sets a custom logger.
func (s *Service) SetLogger(logger *slog.Logger) {
	s.logger = logger
	s.queue.logger = logger
}

// OnDelivered registers a hook run after each delivery.
func (s *Service) OnDelivered(hook DeliveryHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Start starts the delay queue and re-queues persisted pending reminders.
func (s *Service) Start(ctx context.Context) error {
	s.queue.Start(ctx)

	pending, err := s.store.List(ctx, Filter{Status: StatusPending})
	if err != nil {
		return fmt.Errorf("failed to restore pending reminders: %w", err)
	}
	now := s.now()
	restored := 0
	for _, r := range pending {
		if r.ScheduledFor != nil && r.ScheduledFor.After(now) {
			s.queue.Schedule(r.ID, *r.ScheduledFor)
			restored++
		}
	}
	s.logger.Info("reminder service started", "restored", restored)
	return nil
}

// Stop stops the delay queue.
func (s *Service) Stop() {
	s.queue.Stop()
}

// Queued returns the number of deferred reminders waiting to fire.
func (s *Service) Queued() int {
	return s.queue.Len()
}

// CreateReminder persists a reminder and delivers it now or at ScheduledFor.
// If persisting fails, the returned reminder has status failed alongside the error.
func (s *Service) CreateReminder(ctx context.Context, req *CreateReminderRequest) (*Reminder, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	now := s.now()
	r := &Reminder{
		ID:           generateID(),
		UserID:       req.UserID,
		ContactID:    req.ContactID,
		ContactName:  req.ContactName,
		Type:         req.Type,
		Priority:     priority,
		Message:      req.Message,
		Status:       StatusPending,
		CreatedAt:    now,
		ScheduledFor: req.ScheduledFor,
	}
	for k, v := range req.Metadata {
		r.setMeta(k, v)
	}

	if err := s.store.Create(ctx, r); err != nil {
		r.Status = StatusFailed
		r.setMeta(MetaFailureReason, err.Error())
		return r, fmt.Errorf("failed to create reminder: %w", err)
	}

	if r.ScheduledFor != nil && r.ScheduledFor.After(now) {
		s.queue.Schedule(r.ID, *r.ScheduledFor)
		s.logger.Debug("reminder deferred", "reminder_id", r.ID, "scheduled_for", *r.ScheduledFor)
		return r, nil
	}

	delivered, err := s.fire(ctx, r.ID)
	if err != nil {
		return r, err
	}
	if delivered != nil {
		return delivered, nil
	}
	return r, nil
}

// fire re-reads the reminder and delivers it only if it is still pending.
// Returns nil when there was nothing to do.
func (s *Service) fire(ctx context.Context, id string) (*Reminder, error) {
	if !s.claim(id) {
		return nil, nil
	}
	defer s.release(id)

	r, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	if r.Status != StatusPending {
		s.logger.Debug("reminder no longer pending, skipping", "reminder_id", id, "status", r.Status)
		return r, nil
	}
	return r, s.deliver(ctx, r)
}

func (s *Service) deliver(ctx context.Context, r *Reminder) error {
	settings, err := s.settings.GetSettings(ctx, r.UserID)
	if err != nil {
		s.logger.Warn("failed to load settings, using defaults", "user_id", r.UserID, "error", err)
		settings = DefaultSettings()
	}

	if settings.HighPriorityOnly && r.Priority != PriorityHigh {
		if r.Suppressed() {
			return nil
		}
		r.setMeta(MetaSuppressed, true)
		if err := s.store.UpdateIfStatus(ctx, r, StatusPending); err != nil {
			return fmt.Errorf("failed to update reminder: %w", err)
		}
		s.logger.Debug("reminder suppressed by high priority filter", "reminder_id", r.ID, "priority", r.Priority)
		return nil
	}
	delete(r.Metadata, MetaSuppressed)

	results := s.dispatcher.Dispatch(ctx, r, settings.Channels())

	sentAt := s.now()
	r.Status = StatusSent
	r.SentAt = &sentAt
	r.setMeta(MetaDelivery, deliveryMeta(results))
	if err := s.store.UpdateIfStatus(ctx, r, StatusPending); err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNotFound) {
			s.logger.Warn("reminder changed during delivery, keeping stored status", "reminder_id", r.ID, "error", err)
			return nil
		}
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}

	if s.tracker != nil {
		s.tracker.TrackSent(r.ContactID)
	}

	s.mu.Lock()
	hooks := append([]DeliveryHook(nil), s.hooks...)
	s.mu.Unlock()
	for _, hook := range hooks {
		hook(ctx, r)
	}

	s.logger.Info("reminder sent",
		"reminder_id", r.ID,
		"user_id", r.UserID,
		"type", r.Type,
		"channels", len(results),
	)
	return nil
}

// ProcessDue delivers pending reminders whose time has come and that the queue does not hold.
// It returns the number delivered.
func (s *Service) ProcessDue(ctx context.Context) (int, error) {
	pending, err := s.store.List(ctx, Filter{Status: StatusPending})
	if err != nil {
		return 0, fmt.Errorf("failed to get due reminders: %w", err)
	}

	now := s.now()
	processed := 0
	for _, r := range pending {
		if r.ScheduledFor != nil && r.ScheduledFor.After(now) {
			continue
		}
		s.queue.Cancel(r.ID)
		delivered, err := s.fire(ctx, r.ID)
		if err != nil {
			s.logger.Error("failed to process due reminder", "reminder_id", r.ID, "error", err)
			continue
		}
		if delivered != nil && delivered.Status == StatusSent {
			processed++
		}
	}
	return processed, nil
}

// Get returns a reminder owned by userID.
func (s *Service) Get(ctx context.Context, userID int32, id string) (*Reminder, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, nil
}

// List returns userID's reminders, optionally filtered by status.
func (s *Service) List(ctx context.Context, userID int32, status ReminderStatus) ([]*Reminder, error) {
	return s.store.List(ctx, Filter{UserID: userID, Status: status})
}

// Dismiss moves a pending reminder to dismissed and cancels its timer.
// A reminder whose delivery is in flight cannot be dismissed.
func (s *Service) Dismiss(ctx context.Context, userID int32, id string) (*Reminder, error) {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusPending {
		return nil, fmt.Errorf("%w: cannot dismiss reminder with status %s", ErrInvalidTransition, r.Status)
	}
	if !s.claim(id) {
		return nil, fmt.Errorf("%w: reminder %s is being delivered", ErrInvalidTransition, id)
	}
	defer s.release(id)

	s.queue.Cancel(id)
	r.Status = StatusDismissed
	if err := s.store.UpdateIfStatus(ctx, r, StatusPending); err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to dismiss reminder: %w", err)
	}
	return r, nil
}

// Delete removes a reminder on explicit user request.
func (s *Service) Delete(ctx context.Context, userID int32, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	s.queue.Cancel(id)
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	return nil
}

// ClearAll removes every reminder of userID and returns how many were removed.
func (s *Service) ClearAll(ctx context.Context, userID int32) (int, error) {
	reminders, err := s.store.List(ctx, Filter{UserID: userID})
	if err != nil {
		return 0, fmt.Errorf("failed to list reminders: %w", err)
	}
	removed := 0
	for _, r := range reminders {
		s.queue.Cancel(r.ID)
		if err := s.store.Delete(ctx, r.ID); err != nil {
			return removed, fmt.Errorf("failed to delete reminder %s: %w", r.ID, err)
		}
		removed++
	}
	return removed, nil
}

// Resend dispatches a sent reminder again on explicit user request. Status is unchanged.
func (s *Service) Resend(ctx context.Context, userID int32, id string) (map[Channel]bool, error) {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusSent {
		return nil, fmt.Errorf("%w: only sent reminders can be re-sent, got %s", ErrInvalidTransition, r.Status)
	}

	settings, err := s.settings.GetSettings(ctx, userID)
	if err != nil {
		settings = DefaultSettings()
	}
	results := s.dispatcher.Dispatch(ctx, r, settings.Channels())

	count, _ := r.Metadata[MetaResendCount].(int)
	if f, ok := r.Metadata[MetaResendCount].(float64); ok {
		count = int(f)
	}
	r.setMeta(MetaResendCount, count+1)
	r.setMeta(MetaDelivery, deliveryMeta(results))
	if err := s.store.Update(ctx, r); err != nil {
		return results, fmt.Errorf("failed to update reminder: %w", err)
	}
	return results, nil
}

// RecordResponse credits the newest unanswered sent reminder for contactID with a response at at.
// It reports whether a reminder was credited.
func (s *Service) RecordResponse(ctx context.Context, userID int32, contactID string, at time.Time) (bool, error) {
	sent, err := s.store.List(ctx, Filter{UserID: userID, ContactID: contactID, Status: StatusSent})
	if err != nil {
		return false, fmt.Errorf("failed to list sent reminders: %w", err)
	}

	var target *Reminder
	for _, r := range sent {
		if r.SentAt == nil || r.SentAt.After(at) {
			continue
		}
		if _, done := r.Metadata[MetaRespondedAt]; done {
			continue
		}
		if target == nil || r.SentAt.After(*target.SentAt) {
			target = r
		}
	}
	if target == nil {
		return false, nil
	}

	target.setMeta(MetaRespondedAt, at.Unix())
	if err := s.store.Update(ctx, target); err != nil {
		return false, fmt.Errorf("failed to update reminder: %w", err)
	}
	if s.tracker != nil {
		s.tracker.TrackResponse(contactID, at.Sub(*target.SentAt))
	}
	return true, nil
}

func (s *Service) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *Service) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

func validate(req *CreateReminderRequest) error {
	switch {
	case req == nil:
		return fmt.Errorf("%w: empty request", ErrInvalidRequest)
	case req.UserID == 0:
		return fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	case req.ContactID == "":
		return fmt.Errorf("%w: contact id is required", ErrInvalidRequest)
	case req.Message == "":
		return fmt.Errorf("%w: message is required", ErrInvalidRequest)
	case !req.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRequest, req.Type)
	case req.Priority != "" && !req.Priority.Valid():
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidRequest, req.Priority)
	}
	return nil
}

func deliveryMeta(results map[Channel]bool) map[string]bool {
	out := make(map[string]bool, len(results))
	for ch, ok := range results {
		out[string(ch)] = ok
	}
	return out
}
