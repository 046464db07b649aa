package conversation

import (
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Classifier splits contacts into open loops and pending replies.
type Classifier struct {
	thresholds UrgencyThresholds
	location   *time.Location
	logger     *slog.Logger
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithThresholds overrides the urgency boundaries. Invalid thresholds are ignored.
func WithThresholds(t UrgencyThresholds) ClassifierOption {
	return func(c *Classifier) {
		if t.Validate() == nil {
			c.thresholds = t
		}
	}
}

// WithLocation sets the timezone used for calendar-day streaks.
func WithLocation(loc *time.Location) ClassifierOption {
	return func(c *Classifier) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClassifierOption {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClassifier creates a classifier with default thresholds in UTC.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		thresholds: DefaultUrgencyThresholds(),
		location:   time.UTC,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Thresholds returns the configured urgency boundaries.
func (c *Classifier) Thresholds() UrgencyThresholds {
	return c.thresholds
}

// Urgency returns the tier for a message received elapsed ago.
func (c *Classifier) Urgency(elapsed time.Duration) Urgency {
	return c.thresholds.Tier(elapsed)
}

// Classify classifies every contact against its message history as of now.
// A failure analysing one contact is logged and skipped.
func (c *Classifier) Classify(contacts []Contact, messages []Message, now time.Time) *Result {
	byContact := make(map[string][]Message, len(contacts))
	for _, m := range messages {
		byContact[m.ContactID] = append(byContact[m.ContactID], m)
	}

	result := &Result{
		OpenLoops:      []OpenLoop{},
		PendingReplies: []PendingReply{},
	}
	for _, contact := range contacts {
		loop, pending, err := c.classifyContact(contact, byContact[contact.ID], now)
		if err != nil {
			c.logger.Warn("skipping contact during classification",
				"contact_id", contact.ID,
				"error", err,
			)
			result.Skipped = append(result.Skipped, contact.ID)
			continue
		}
		if loop != nil {
			result.OpenLoops = append(result.OpenLoops, *loop)
		}
		if pending != nil {
			result.PendingReplies = append(result.PendingReplies, *pending)
		}
	}

	sort.SliceStable(result.PendingReplies, func(i, j int) bool {
		return result.PendingReplies[i].HoursSinceReceived > result.PendingReplies[j].HoursSinceReceived
	})
	sort.SliceStable(result.OpenLoops, func(i, j int) bool {
		return result.OpenLoops[i].AgeSinceLastMessage > result.OpenLoops[j].AgeSinceLastMessage
	})

	result.Stats = Stats{
		OpenLoopsCount:      len(result.OpenLoops),
		PendingRepliesCount: len(result.PendingReplies),
		CheckInsSent:        countCheckIns(messages),
		CurrentStreak:       CurrentStreak(messages, now, c.location),
	}
	return result
}

// ClassifyContact classifies a single contact.
func (c *Classifier) ClassifyContact(contact Contact, messages []Message, now time.Time) (*OpenLoop, *PendingReply, error) {
	return c.classifyContact(contact, messages, now)
}

func (c *Classifier) classifyContact(contact Contact, messages []Message, now time.Time) (loop *OpenLoop, pending *PendingReply, err error) {
	defer func() {
		if r := recover(); r != nil {
			loop, pending = nil, nil
			err = fmt.Errorf("panic classifying contact %s: %v", contact.ID, r)
		}
	}()

	latest, ok := Latest(messages)
	if !ok {
		return nil, nil, nil
	}

	elapsed := now.Sub(latest.CreatedAt)
	switch latest.Direction {
	case DirectionOutbound:
		return &OpenLoop{
			Contact:             contact,
			Message:             latest,
			AgeSinceLastMessage: elapsed,
		}, nil, nil
	case DirectionInbound:
		return nil, &PendingReply{
			Contact:            contact,
			Message:            latest,
			HoursSinceReceived: elapsed.Hours(),
			Urgency:            c.thresholds.Tier(elapsed),
		}, nil
	default:
		return nil, nil, fmt.Errorf("message %s has unknown direction %q", latest.ID, latest.Direction)
	}
}

// Latest returns the message with the greatest timestamp. Ties go to the later element.
func Latest(messages []Message) (Message, bool) {
	if len(messages) == 0 {
		return Message{}, false
	}
	latest := messages[0]
	for _, m := range messages[1:] {
		if !m.CreatedAt.Before(latest.CreatedAt) {
			latest = m
		}
	}
	return latest, true
}

func countCheckIns(messages []Message) int {
	n := 0
	for _, m := range messages {
		if m.AIGenerated && m.Direction == DirectionOutbound {
			n++
		}
	}
	return n
}
