package reminder

import (
	"sort"
	"sync"
	"time"
)

// EffectivenessStats summarizes how contacts respond to reminders.
type EffectivenessStats struct {
	ContactID       string        `json:"contactId"`
	ResponseRate    float64       `json:"responseRate"`
	AvgResponseTime time.Duration `json:"avgResponseTime"`
	TotalReminders  int           `json:"totalReminders"`
	Responded       int           `json:"responded"`
}

type effectivenessCounters struct {
	sent          int
	responded     int
	responseTimes []time.Duration
}

// EffectivenessTracker accumulates per-contact delivery and response counters.
// Counters only grow.
type EffectivenessTracker struct {
	mu       sync.RWMutex
	contacts map[string]*effectivenessCounters
}

// NewEffectivenessTracker creates an empty tracker.
func NewEffectivenessTracker() *EffectivenessTracker {
	return &EffectivenessTracker{
		contacts: make(map[string]*effectivenessCounters),
	}
}

// TrackSent records a delivered reminder for contactID.
func (t *EffectivenessTracker) TrackSent(contactID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters(contactID).sent++
}

// TrackResponse records a response to a reminder after latency.
func (t *EffectivenessTracker) TrackResponse(contactID string, latency time.Duration) {
	if latency < 0 {
		latency = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.counters(contactID)
	c.responded++
	c.responseTimes = append(c.responseTimes, latency)
}

// Stats returns the stats for contactID; unknown contacts yield zeros.
func (t *EffectivenessTracker) Stats(contactID string) EffectivenessStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.contacts[contactID]
	if !ok {
		return EffectivenessStats{ContactID: contactID}
	}
	return summarize(contactID, c)
}

// All returns stats for every tracked contact, sorted by contact id.
func (t *EffectivenessTracker) All() []EffectivenessStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]EffectivenessStats, 0, len(t.contacts))
	for id, c := range t.contacts {
		out = append(out, summarize(id, c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContactID < out[j].ContactID })
	return out
}

// Must be called with write lock held.
func (t *EffectivenessTracker) counters(contactID string) *effectivenessCounters {
	c, ok := t.contacts[contactID]
	if !ok {
		c = &effectivenessCounters{}
		t.contacts[contactID] = c
	}
	return c
}

func summarize(contactID string, c *effectivenessCounters) EffectivenessStats {
	s := EffectivenessStats{
		ContactID:      contactID,
		TotalReminders: c.sent,
		Responded:      c.responded,
	}
	if c.sent > 0 {
		s.ResponseRate = float64(c.responded) / float64(c.sent)
	}
	if n := len(c.responseTimes); n > 0 {
		var total time.Duration
		for _, d := range c.responseTimes {
			total += d
		}
		s.AvgResponseTime = total / time.Duration(n)
	}
	return s
}
