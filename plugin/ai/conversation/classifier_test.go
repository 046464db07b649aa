package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC)

func msg(id, contactID string, dir Direction, ago time.Duration) Message {
	return Message{
		ID:        id,
		ContactID: contactID,
		Content:   "hi " + id,
		Direction: dir,
		CreatedAt: testNow.Add(-ago),
	}
}

func TestClassify_LatestMessageDecides(t *testing.T) {
	contacts := []Contact{
		{ID: "ana", Name: "Ana"},
		{ID: "bo", Name: "Bo"},
		{ID: "cy", Name: "Cy"},
	}
	messages := []Message{
		msg("m1", "ana", DirectionOutbound, 40*time.Hour),
		msg("m2", "ana", DirectionInbound, 30*time.Hour),
		msg("m3", "bo", DirectionInbound, 5*time.Hour),
		msg("m4", "bo", DirectionOutbound, 2*time.Hour),
	}

	result := NewClassifier().Classify(contacts, messages, testNow)

	require.Len(t, result.PendingReplies, 1)
	assert.Equal(t, "ana", result.PendingReplies[0].Contact.ID)
	assert.Equal(t, "m2", result.PendingReplies[0].Message.ID)
	assert.Equal(t, UrgencyMedium, result.PendingReplies[0].Urgency)
	assert.InDelta(t, 30.0, result.PendingReplies[0].HoursSinceReceived, 0.001)

	require.Len(t, result.OpenLoops, 1)
	assert.Equal(t, "bo", result.OpenLoops[0].Contact.ID)
	assert.Equal(t, 2*time.Hour, result.OpenLoops[0].AgeSinceLastMessage)

	assert.Equal(t, 1, result.Stats.OpenLoopsCount)
	assert.Equal(t, 1, result.Stats.PendingRepliesCount)
}

func TestClassify_AtMostOnePerContact(t *testing.T) {
	contacts := []Contact{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	messages := []Message{
		msg("1", "a", DirectionInbound, time.Hour),
		msg("2", "a", DirectionOutbound, 3*time.Hour),
		msg("3", "b", DirectionOutbound, time.Hour),
		msg("4", "b", DirectionInbound, 2*time.Hour),
	}

	result := NewClassifier().Classify(contacts, messages, testNow)

	seen := map[string]int{}
	for _, l := range result.OpenLoops {
		seen[l.Contact.ID]++
	}
	for _, p := range result.PendingReplies {
		seen[p.Contact.ID]++
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, seen)
	assert.NotContains(t, seen, "c")
}

func TestClassify_EndToEndUrgencyTiers(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want Urgency
	}{
		{10 * time.Hour, UrgencyLow},
		{30 * time.Hour, UrgencyMedium},
		{50 * time.Hour, UrgencyHigh},
		{80 * time.Hour, UrgencyCritical},
	}

	for _, tt := range tests {
		t.Run(tt.ago.String(), func(t *testing.T) {
			contacts := []Contact{{ID: "ana", Name: "Ana"}}
			messages := []Message{msg("m", "ana", DirectionInbound, tt.ago)}

			result := NewClassifier().Classify(contacts, messages, testNow)

			require.Len(t, result.PendingReplies, 1)
			assert.Equal(t, tt.want, result.PendingReplies[0].Urgency)
		})
	}
}

func TestUrgency_Monotonic(t *testing.T) {
	th := DefaultUrgencyThresholds()
	prev := th.Tier(0)
	for h := 0; h <= 200; h++ {
		cur := th.Tier(time.Duration(h) * time.Hour)
		assert.True(t, cur.AtLeast(prev), "tier dropped at %dh", h)
		prev = cur
	}
	assert.Equal(t, UrgencyMedium, th.Tier(24*time.Hour))
	assert.Equal(t, UrgencyHigh, th.Tier(48*time.Hour))
	assert.Equal(t, UrgencyCritical, th.Tier(72*time.Hour))
}

func TestClassify_CustomThresholds(t *testing.T) {
	c := NewClassifier(WithThresholds(UrgencyThresholds{
		Medium:   time.Hour,
		High:     2 * time.Hour,
		Critical: 3 * time.Hour,
	}))
	assert.Equal(t, UrgencyCritical, c.Urgency(4*time.Hour))

	ignored := NewClassifier(WithThresholds(UrgencyThresholds{Medium: 5, High: 1, Critical: 2}))
	assert.Equal(t, DefaultUrgencyThresholds(), ignored.Thresholds())
}

func TestClassify_SkipsBrokenContact(t *testing.T) {
	contacts := []Contact{{ID: "bad"}, {ID: "good"}}
	messages := []Message{
		{ID: "x", ContactID: "bad", Direction: "sideways", CreatedAt: testNow},
		msg("y", "good", DirectionInbound, time.Hour),
	}

	result := NewClassifier().Classify(contacts, messages, testNow)

	assert.Equal(t, []string{"bad"}, result.Skipped)
	require.Len(t, result.PendingReplies, 1)
	assert.Equal(t, "good", result.PendingReplies[0].Contact.ID)
}

func TestClassify_SortedByAge(t *testing.T) {
	contacts := []Contact{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	messages := []Message{
		msg("1", "a", DirectionInbound, time.Hour),
		msg("2", "b", DirectionInbound, 50*time.Hour),
		msg("3", "c", DirectionOutbound, time.Hour),
		msg("4", "d", DirectionOutbound, 9*time.Hour),
	}

	result := NewClassifier().Classify(contacts, messages, testNow)

	require.Len(t, result.PendingReplies, 2)
	assert.Equal(t, "b", result.PendingReplies[0].Contact.ID)
	require.Len(t, result.OpenLoops, 2)
	assert.Equal(t, "d", result.OpenLoops[0].Contact.ID)
}

func TestLatest_TieGoesToLastInInput(t *testing.T) {
	at := testNow.Add(-time.Hour)
	messages := []Message{
		{ID: "first", Direction: DirectionInbound, CreatedAt: at},
		{ID: "second", Direction: DirectionOutbound, CreatedAt: at},
	}
	latest, ok := Latest(messages)
	require.True(t, ok)
	assert.Equal(t, "second", latest.ID)

	_, ok = Latest(nil)
	assert.False(t, ok)
}

func TestStats_CheckInsSent(t *testing.T) {
	messages := []Message{
		{ContactID: "a", Direction: DirectionOutbound, AIGenerated: true, CreatedAt: testNow},
		{ContactID: "a", Direction: DirectionOutbound, AIGenerated: false, CreatedAt: testNow},
		{ContactID: "a", Direction: DirectionInbound, AIGenerated: true, CreatedAt: testNow},
	}
	result := NewClassifier().Classify([]Contact{{ID: "a"}}, messages, testNow)
	assert.Equal(t, 1, result.Stats.CheckInsSent)
}

func TestCurrentStreak(t *testing.T) {
	day := func(d int) Message {
		return Message{CreatedAt: testNow.AddDate(0, 0, -d)}
	}

	assert.Equal(t, 3, CurrentStreak([]Message{day(0), day(1), day(2), day(4)}, testNow, time.UTC))
	assert.Equal(t, 0, CurrentStreak([]Message{day(1), day(2)}, testNow, time.UTC))
	assert.Equal(t, 0, CurrentStreak(nil, testNow, time.UTC))

	// 23:30 UTC on the previous day is "today" in Tokyo.
	tokyo := time.FixedZone("JST", 9*3600)
	late := Message{CreatedAt: time.Date(2026, 1, 26, 23, 30, 0, 0, time.UTC)}
	assert.Equal(t, 1, CurrentStreak([]Message{late}, testNow, tokyo))
}
