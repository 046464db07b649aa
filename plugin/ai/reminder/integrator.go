package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hrygo/followup/plugin/ai/conversation"
	"github.com/hrygo/followup/plugin/ai/inquiry"
)

// ScanResult reports what one integrator run did.
type ScanResult struct {
	Key            string               `json:"key"`
	Skipped        bool                 `json:"skipped"`
	Created        []*Reminder          `json:"created"`
	Classification *conversation.Result `json:"classification"`
}

// Integrator turns classifier output into reminders.
// A run is skipped when the (contacts, messages, pending replies) counts are unchanged since the last run for that user.
type Integrator struct {
	service    *Service
	classifier *conversation.Classifier
	detector   *inquiry.Detector
	settings   SettingsProvider
	now        func() time.Time
	logger     *slog.Logger

	mu       sync.Mutex
	lastKeys map[int32]string
}

// NewIntegrator creates a new classifier-to-reminder driver.
func NewIntegrator(service *Service, classifier *conversation.Classifier, detector *inquiry.Detector, settings SettingsProvider) *Integrator {
	if classifier == nil {
		classifier = conversation.NewClassifier()
	}
	if detector == nil {
		detector = inquiry.NewDetector()
	}
	if settings == nil {
		settings = service.settings
	}
	return &Integrator{
		service:    service,
		classifier: classifier,
		detector:   detector,
		settings:   settings,
		now:        time.Now,
		logger:     slog.Default(),
		lastKeys:   make(map[int32]string),
	}
}

// StableKey identifies the data shape a run was computed from.
func StableKey(contactCount, messageCount, pendingReplyCount int) string {
	return fmt.Sprintf("%d:%d:%d", contactCount, messageCount, pendingReplyCount)
}

// Run classifies userID's conversations and creates any reminders now owed.
func (i *Integrator) Run(ctx context.Context, userID int32, contacts []conversation.Contact, messages []conversation.Message) (*ScanResult, error) {
	now := i.now()
	classification := i.classifier.Classify(contacts, messages, now)
	key := StableKey(len(contacts), len(messages), len(classification.PendingReplies))
	result := &ScanResult{Key: key, Created: []*Reminder{}, Classification: classification}

	i.mu.Lock()
	if i.lastKeys[userID] == key {
		i.mu.Unlock()
		result.Skipped = true
		return result, nil
	}
	i.lastKeys[userID] = key
	i.mu.Unlock()

	settings, err := i.settings.GetSettings(ctx, userID)
	if err != nil {
		i.logger.Warn("failed to load settings, using defaults", "user_id", userID, "error", err)
		settings = DefaultSettings()
	}

	open, err := i.openReminders(ctx, userID)
	if err != nil {
		i.forget(userID)
		return nil, err
	}

	byContact := make(map[string][]conversation.Message)
	for _, m := range messages {
		byContact[m.ContactID] = append(byContact[m.ContactID], m)
	}

	for _, pending := range classification.PendingReplies {
		req := i.planReminder(userID, pending, byContact[pending.Contact.ID], settings, now)
		if req == nil {
			continue
		}
		if _, exists := open[openKey(req.ContactID, req.Type)]; exists {
			continue
		}

		r, err := i.service.CreateReminder(ctx, req)
		if err != nil {
			i.forget(userID)
			return result, fmt.Errorf("failed to create %s reminder for contact %s: %w", req.Type, req.ContactID, err)
		}
		open[openKey(req.ContactID, req.Type)] = struct{}{}
		result.Created = append(result.Created, r)
	}

	i.logger.Info("reminder scan completed",
		"user_id", userID,
		"key", key,
		"pending_replies", len(classification.PendingReplies),
		"created", len(result.Created),
	)
	return result, nil
}

// Reset forgets the last key for userID so the next run is not skipped.
func (i *Integrator) Reset(userID int32) {
	i.forget(userID)
}

func (i *Integrator) forget(userID int32) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.lastKeys, userID)
}

// planReminder picks at most one reminder for a pending reply; overdue wins over question.
func (i *Integrator) planReminder(userID int32, pending conversation.PendingReply, history []conversation.Message, settings Settings, now time.Time) *CreateReminderRequest {
	elapsed := now.Sub(pending.Message.CreatedAt)
	name := pending.Contact.Name
	if name == "" {
		name = pending.Contact.ID
	}

	if elapsed >= settings.OverdueAfter() {
		rType := TypeOverdue
		if pending.Urgency == conversation.UrgencyCritical {
			rType = TypeUrgent
		}
		return &CreateReminderRequest{
			UserID:      userID,
			ContactID:   pending.Contact.ID,
			ContactName: name,
			Type:        rType,
			Priority:    priorityFor(pending.Urgency),
			Message:     fmt.Sprintf("%s has been waiting %s for your reply: %q", name, formatAge(elapsed), excerpt(pending.Message.Content)),
			Metadata:    map[string]any{"message_id": pending.Message.ID, "urgency": string(pending.Urgency)},
		}
	}

	question, asked := i.oldestUnansweredQuestion(history)
	if !asked || now.Sub(question.CreatedAt) < settings.QuestionAfter() {
		return nil
	}
	priority := PriorityMedium
	if pending.Urgency.AtLeast(conversation.UrgencyHigh) {
		priority = PriorityHigh
	}
	return &CreateReminderRequest{
		UserID:      userID,
		ContactID:   pending.Contact.ID,
		ContactName: name,
		Type:        TypeQuestion,
		Priority:    priority,
		Message:     fmt.Sprintf("%s asked %s ago: %q", name, formatAge(now.Sub(question.CreatedAt)), excerpt(question.Content)),
		Metadata:    map[string]any{"message_id": question.ID, "kind": string(i.detector.Classify(question.Content))},
	}
}

// oldestUnansweredQuestion finds the earliest inbound question after the user's last outbound message.
func (i *Integrator) oldestUnansweredQuestion(history []conversation.Message) (conversation.Message, bool) {
	var lastOutbound time.Time
	for _, m := range history {
		if m.Direction == conversation.DirectionOutbound && m.CreatedAt.After(lastOutbound) {
			lastOutbound = m.CreatedAt
		}
	}

	var oldest conversation.Message
	found := false
	for _, m := range history {
		if m.Direction != conversation.DirectionInbound || !m.CreatedAt.After(lastOutbound) {
			continue
		}
		if !i.detector.IsQuestionOrRequest(m.Content) {
			continue
		}
		if !found || m.CreatedAt.Before(oldest.CreatedAt) {
			oldest = m
			found = true
		}
	}
	return oldest, found
}

// openReminders collects contact|type pairs that still await the user: pending
// reminders and sent ones no response has been recorded for.
func (i *Integrator) openReminders(ctx context.Context, userID int32) (map[string]struct{}, error) {
	all, err := i.service.List(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get existing reminders: %w", err)
	}
	open := make(map[string]struct{}, len(all))
	for _, r := range all {
		switch r.Status {
		case StatusPending:
		case StatusSent:
			if _, responded := r.Metadata[MetaRespondedAt]; responded {
				continue
			}
		default:
			continue
		}
		open[openKey(r.ContactID, r.Type)] = struct{}{}
	}
	return open, nil
}

func openKey(contactID string, t ReminderType) string {
	return contactID + "|" + string(t)
}

func priorityFor(u conversation.Urgency) Priority {
	switch u {
	case conversation.UrgencyCritical, conversation.UrgencyHigh:
		return PriorityHigh
	case conversation.UrgencyMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func formatAge(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 48*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

func excerpt(s string) string {
	const limit = 80
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
