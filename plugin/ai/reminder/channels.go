package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ChannelSender delivers a reminder through one channel.
type ChannelSender interface {
	Send(ctx context.Context, reminder *Reminder) error
	Name() string
}

// NotificationDispatcher routes reminders to registered channel senders.
type NotificationDispatcher struct {
	channels map[Channel]ChannelSender
	timeout  time.Duration
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewNotificationDispatcher creates a new notification dispatcher.
// timeout bounds each channel's send (default 15s).
func NewNotificationDispatcher(timeout time.Duration) *NotificationDispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &NotificationDispatcher{
		channels: make(map[Channel]ChannelSender),
		timeout:  timeout,
		logger:   slog.Default(),
	}
}

// Register registers a channel sender.
func (d *NotificationDispatcher) Register(channel Channel, sender ChannelSender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels[channel] = sender
	d.logger.Info("registered notification channel", "channel", channel, "sender", sender.Name())
}

// Registered reports whether channel has a sender.
func (d *NotificationDispatcher) Registered(channel Channel) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.channels[channel]
	return ok
}

// Dispatch sends reminder through every listed channel concurrently.
// Each channel's outcome is independent; failures and panics become false.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, reminder *Reminder, channels []Channel) map[Channel]bool {
	results := make(map[Channel]bool, len(channels))
	var mu sync.Mutex
	var g errgroup.Group

	for _, ch := range channels {
		d.mu.RLock()
		sender, ok := d.channels[ch]
		d.mu.RUnlock()
		if !ok {
			d.logger.Debug("channel not registered, skipping", "channel", ch, "reminder_id", reminder.ID)
			continue
		}

		g.Go(func() error {
			ok := d.safeSend(ctx, ch, sender, reminder)
			mu.Lock()
			results[ch] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (d *NotificationDispatcher) safeSend(ctx context.Context, ch Channel, sender ChannelSender, reminder *Reminder) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("channel sender panicked",
				"channel", ch,
				"reminder_id", reminder.ID,
				"panic", r,
			)
			ok = false
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := sender.Send(sendCtx, reminder); err != nil {
		d.logger.Warn("reminder delivery failed",
			"channel", ch,
			"reminder_id", reminder.ID,
			"user_id", reminder.UserID,
			"error", err,
		)
		return false
	}
	return true
}

// BrowserSender publishes in-app push notifications.
type BrowserSender struct {
	store  AppNotificationStore
	logger *slog.Logger
}

// AppNotificationStore defines storage for in-app notifications.
type AppNotificationStore interface {
	CreateNotification(ctx context.Context, notification *AppNotification) error
	ListNotifications(ctx context.Context, userID int32, limit int) ([]*AppNotification, error)
}

// AppNotification represents an in-app notification.
type AppNotification struct {
	ID         string         `json:"id"`
	UserID     int32          `json:"userId"`
	ReminderID string         `json:"reminderId"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Priority   Priority       `json:"priority"`
	Read       bool           `json:"read"`
	CreatedAt  time.Time      `json:"createdAt"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewBrowserSender creates a new push notification sender.
func NewBrowserSender(store AppNotificationStore) *BrowserSender {
	return &BrowserSender{
		store:  store,
		logger: slog.Default(),
	}
}

// Send publishes a push notification for the reminder.
func (s *BrowserSender) Send(ctx context.Context, r *Reminder) error {
	notification := &AppNotification{
		ID:         generateID(),
		UserID:     r.UserID,
		ReminderID: r.ID,
		Title:      Title(r),
		Message:    r.Message,
		Priority:   r.Priority,
		CreatedAt:  time.Now(),
	}

	if err := s.store.CreateNotification(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	s.logger.Debug("push notification sent", "user_id", r.UserID, "notification_id", notification.ID)
	return nil
}

// Name returns the sender name.
func (s *BrowserSender) Name() string {
	return "browser"
}

// MemoryAppNotificationStore keeps push notifications in process, newest last.
type MemoryAppNotificationStore struct {
	notifications map[int32][]*AppNotification
	maxPerUser    int
	mu            sync.Mutex
}

// NewMemoryAppNotificationStore creates a notification feed keeping maxPerUser items per user.
func NewMemoryAppNotificationStore(maxPerUser int) *MemoryAppNotificationStore {
	if maxPerUser <= 0 {
		maxPerUser = 200
	}
	return &MemoryAppNotificationStore{
		notifications: make(map[int32][]*AppNotification),
		maxPerUser:    maxPerUser,
	}
}

// CreateNotification stores a notification.
func (s *MemoryAppNotificationStore) CreateNotification(ctx context.Context, notification *AppNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.notifications[notification.UserID], notification)
	if len(list) > s.maxPerUser {
		list = list[len(list)-s.maxPerUser:]
	}
	s.notifications[notification.UserID] = list
	return nil
}

// ListNotifications returns up to limit newest notifications, newest first.
func (s *MemoryAppNotificationStore) ListNotifications(ctx context.Context, userID int32, limit int) ([]*AppNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notifications[userID]
	out := make([]*AppNotification, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, list[i])
	}
	return out, nil
}

// WebhookConfig holds webhook configuration.
type WebhookConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration
	Headers map[string]string
}

// WebhookSender posts reminders to an HTTP endpoint.
type WebhookSender struct {
	config     WebhookConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// WebhookPayload represents the webhook request body.
type WebhookPayload struct {
	Event     string    `json:"event"`
	Reminder  *Reminder `json:"reminder"`
	Timestamp time.Time `json:"timestamp"`
}

// NewWebhookSender creates a new webhook sender.
func NewWebhookSender(config WebhookConfig) *WebhookSender {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &WebhookSender{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: slog.Default(),
	}
}

// Send posts the reminder as JSON.
func (s *WebhookSender) Send(ctx context.Context, r *Reminder) error {
	body, err := json.Marshal(WebhookPayload{
		Event:     "reminder.triggered",
		Reminder:  r,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.config.Secret != "" {
		req.Header.Set("X-Webhook-Secret", s.config.Secret)
	}
	for k, v := range s.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		s.logger.Error("webhook returned error",
			"url", s.config.URL,
			"status", resp.StatusCode,
			"response", string(respBody),
		)
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// Name returns the sender name.
func (s *WebhookSender) Name() string {
	return "webhook"
}

// Title returns a short heading for the reminder.
func Title(r *Reminder) string {
	switch r.Type {
	case TypeUrgent:
		return fmt.Sprintf("Urgent: reply to %s", r.ContactName)
	case TypeOverdue:
		return fmt.Sprintf("Overdue reply to %s", r.ContactName)
	case TypeQuestion:
		return fmt.Sprintf("%s asked you something", r.ContactName)
	case TypeCheckin:
		return fmt.Sprintf("Time to check in with %s", r.ContactName)
	default:
		return fmt.Sprintf("Follow up with %s", r.ContactName)
	}
}
