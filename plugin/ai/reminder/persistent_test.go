package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/followup/store/test"
)

func TestPersistentStoreReminders(t *testing.T) {
	ctx := context.Background()
	ps := NewPersistentStore(test.NewTestingStore(ctx, t), DefaultSettings())

	scheduled := baseTime.Add(time.Hour)
	r := &Reminder{
		ID:           "r1",
		UserID:       1,
		ContactID:    "ana",
		ContactName:  "Ana",
		Type:         TypeOverdue,
		Priority:     PriorityHigh,
		Message:      "Reply to Ana",
		Status:       StatusPending,
		CreatedAt:    baseTime,
		ScheduledFor: &scheduled,
		Metadata:     map[string]any{"message_id": "m1"},
	}
	require.NoError(t, ps.Create(ctx, r))

	got, err := ps.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.ContactName)
	assert.True(t, got.CreatedAt.Equal(baseTime))
	require.NotNil(t, got.ScheduledFor)
	assert.True(t, got.ScheduledFor.Equal(scheduled))
	assert.Nil(t, got.SentAt)
	assert.Equal(t, "m1", got.Metadata["message_id"])

	sent := baseTime.Add(2 * time.Hour)
	got.Status = StatusSent
	got.SentAt = &sent
	got.setMeta(MetaResendCount, 1)
	require.NoError(t, ps.Update(ctx, got))

	list, err := ps.List(ctx, Filter{UserID: 1, Status: StatusSent})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].SentAt.Equal(sent))
	assert.Equal(t, float64(1), list[0].Metadata[MetaResendCount])

	list, err = ps.List(ctx, Filter{UserID: 1, Status: StatusPending})
	require.NoError(t, err)
	assert.Empty(t, list)

	err = ps.Update(ctx, &Reminder{ID: "missing", Status: StatusSent, Priority: PriorityLow})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, ps.Delete(ctx, "r1"))
	_, err = ps.Get(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateIfStatus(t *testing.T) {
	ctx := context.Background()
	stores := map[string]ReminderStore{
		"memory":     NewMemoryStore(),
		"persistent": NewPersistentStore(test.NewTestingStore(ctx, t), DefaultSettings()),
	}
	for name, rs := range stores {
		t.Run(name, func(t *testing.T) {
			r := &Reminder{
				ID:        "r1",
				UserID:    1,
				ContactID: "ana",
				Type:      TypeOverdue,
				Priority:  PriorityHigh,
				Message:   "Reply to Ana",
				Status:    StatusPending,
				CreatedAt: baseTime,
			}
			require.NoError(t, rs.Create(ctx, r))

			dismissed := *r
			dismissed.Status = StatusDismissed
			require.NoError(t, rs.UpdateIfStatus(ctx, &dismissed, StatusPending))

			sent := *r
			sent.Status = StatusSent
			err := rs.UpdateIfStatus(ctx, &sent, StatusPending)
			assert.ErrorIs(t, err, ErrInvalidTransition)

			got, err := rs.Get(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, StatusDismissed, got.Status)

			missing := *r
			missing.ID = "missing"
			assert.ErrorIs(t, rs.UpdateIfStatus(ctx, &missing, StatusPending), ErrNotFound)
		})
	}
}

func TestPersistentStoreBacksService(t *testing.T) {
	ctx := context.Background()
	ps := NewPersistentStore(test.NewTestingStore(ctx, t), DefaultSettings())

	svc, browser, _, clock := newTestService(DefaultSettings())
	svc.store = ps

	r, err := svc.CreateReminder(ctx, request("ana", TypeOverdue, PriorityHigh))
	require.NoError(t, err)
	assert.Equal(t, StatusSent, r.Status)
	assert.Len(t, browser.Calls(), 1)

	_, err = svc.Resend(ctx, 1, r.ID)
	require.NoError(t, err)
	_, err = svc.Resend(ctx, 1, r.ID)
	require.NoError(t, err)

	stored, err := svc.Get(ctx, 1, r.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(2), stored.Metadata[MetaResendCount])

	credited, err := svc.RecordResponse(ctx, 1, "ana", clock.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, credited)
}

func TestPersistentStoreFollowups(t *testing.T) {
	ctx := context.Background()
	ps := NewPersistentStore(test.NewTestingStore(ctx, t), DefaultSettings())

	fu := &ScheduledFollowup{
		ID:           "f1",
		UserID:       1,
		ContactID:    "ana",
		ContactName:  "Ana",
		ScheduledFor: baseTime,
		Message:      "Call Ana",
		Status:       FollowupPending,
		CreatedAt:    baseTime,
	}
	require.NoError(t, ps.CreateFollowup(ctx, fu))

	reminderID := "r9"
	require.NoError(t, ps.UpdateFollowup(ctx, "f1", FollowupUpdate{ReminderID: &reminderID}))
	require.NoError(t, ps.UpdateFollowup(ctx, "f1", statusUpdate(FollowupSent)))

	got, err := ps.GetFollowup(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "r9", got.ReminderID)
	assert.Equal(t, FollowupSent, got.Status)
	assert.True(t, got.ScheduledFor.Equal(baseTime))

	list, err := ps.ListFollowups(ctx, 1, FollowupPending)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = ps.ListFollowups(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = ps.GetFollowup(ctx, "nope")
	assert.ErrorIs(t, err, ErrFollowupNotFound)
	assert.ErrorIs(t, ps.UpdateFollowup(ctx, "nope", statusUpdate(FollowupSent)), ErrFollowupNotFound)
}

func TestPersistentStoreSettings(t *testing.T) {
	ctx := context.Background()
	ps := NewPersistentStore(test.NewTestingStore(ctx, t), DefaultSettings())

	settings, err := ps.GetSettings(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)

	settings.Telegram = true
	settings.TelegramChatID = 77
	settings.OverdueThreshold = -5
	settings.EmailProvider = "carrier-pigeon"
	saved, err := ps.SaveSettings(ctx, 1, settings)
	require.NoError(t, err)
	assert.Equal(t, 24, saved.OverdueThreshold)
	assert.Equal(t, EmailProviderResend, saved.EmailProvider)

	loaded, err := ps.GetSettings(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	other, err := ps.GetSettings(ctx, 2)
	require.NoError(t, err)
	assert.False(t, other.Telegram)
}
