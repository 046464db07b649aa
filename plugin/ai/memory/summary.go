package memory

import (
	"math"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultHistoryLimit is the number of entries kept and cached per conversation.
	DefaultHistoryLimit = 100

	// summaryWindow is the number of recent entries a summary is derived from.
	summaryWindow = 20

	baseStrength      = 50.0
	maxFrequencyBonus = 20.0
	maxEmotionalBonus = 20.0
	maxQualityBonus   = 10.0

	defaultStyle = "neutral"
)

var pendingMarkers = []string{"follow up", "remind", "schedule", "meeting"}

// Summarize derives a ContextSummary from entries (oldest first) as of now.
func Summarize(entries []MemoryEntry, now time.Time) ContextSummary {
	recent := entries
	if len(recent) > summaryWindow {
		recent = recent[len(recent)-summaryWindow:]
	}

	summary := ContextSummary{
		KeyTopics:            []string{},
		EmotionalPatterns:    []string{},
		CommunicationStyle:   defaultStyle,
		RelationshipStrength: baseStrength,
		PendingItems:         []string{},
	}
	if len(recent) == 0 {
		return summary
	}

	topics := newCounter()
	emotions := newCounter()
	styles := newCounter()
	for _, e := range recent {
		for _, t := range e.Topics {
			topics.add(strings.ToLower(t))
		}
		emotions.add(e.EmotionalContext)
		styles.add(e.CommunicationStyle)
		if e.Timestamp.After(summary.LastInteraction) {
			summary.LastInteraction = e.Timestamp
		}
	}

	summary.KeyTopics = topics.top(5)
	summary.EmotionalPatterns = emotions.top(3)
	if top := styles.top(1); len(top) == 1 {
		summary.CommunicationStyle = top[0]
	}
	summary.RelationshipStrength = relationshipStrength(recent, now)
	summary.PendingItems = pendingItems(recent, 3)
	return summary
}

// relationshipStrength starts at 50 and adds frequency, emotional and quality bonuses, clamped to [0,100].
func relationshipStrength(entries []MemoryEntry, now time.Time) float64 {
	n := len(entries)
	if n == 0 {
		return baseStrength
	}

	oldest := entries[0].Timestamp
	for _, e := range entries {
		if e.Timestamp.Before(oldest) {
			oldest = e.Timestamp
		}
	}
	days := math.Max(1, now.Sub(oldest).Hours()/24)
	perDay := float64(n) / days
	frequency := math.Min(maxFrequencyBonus, perDay*10)

	emotional, quality := 0, 0
	for _, e := range entries {
		if e.EmotionalContext != "" && e.EmotionalContext != "neutral" {
			emotional++
		}
		if e.ResponseQuality != nil && *e.ResponseQuality > 0.7 {
			quality++
		}
	}

	score := baseStrength +
		frequency +
		maxEmotionalBonus*float64(emotional)/float64(n) +
		maxQualityBonus*float64(quality)/float64(n)
	if math.IsNaN(score) {
		return baseStrength
	}
	return math.Max(0, math.Min(100, score))
}

// pendingItems returns up to limit newest contents mentioning a follow-up marker.
func pendingItems(entries []MemoryEntry, limit int) []string {
	items := []string{}
	for i := len(entries) - 1; i >= 0 && len(items) < limit; i-- {
		lower := strings.ToLower(entries[i].Content)
		for _, marker := range pendingMarkers {
			if strings.Contains(lower, marker) {
				items = append(items, entries[i].Content)
				break
			}
		}
	}
	return items
}

// counter tallies tags and remembers first-seen order for stable ties.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: map[string]int{}}
}

func (c *counter) add(tag string) {
	if tag == "" {
		return
	}
	if _, ok := c.counts[tag]; !ok {
		c.order = append(c.order, tag)
	}
	c.counts[tag]++
}

func (c *counter) top(n int) []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	sort.SliceStable(keys, func(i, j int) bool {
		return c.counts[keys[i]] > c.counts[keys[j]]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
