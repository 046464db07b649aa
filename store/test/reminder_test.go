package test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/followup/store"
)

func TestReminderStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	scheduled := int64(5000)
	created, err := ts.CreateReminder(ctx, &store.Reminder{
		UID:         "r1",
		UserID:      1,
		ContactUID:  "c-ana",
		ContactName: "Ana",
		Type:        "overdue",
		Priority:    "high",
		Message:     "Reply to Ana",
		Status:      "pending",
		ScheduledTs: &scheduled,
	})
	require.NoError(t, err)
	assert.Greater(t, created.ID, int32(0))
	assert.Equal(t, "{}", created.Payload)

	_, err = ts.CreateReminder(ctx, &store.Reminder{UID: "r2", UserID: 1, ContactUID: "c-bo", Type: "question", Priority: "medium", Status: "sent"})
	require.NoError(t, err)

	uid := "r1"
	got, err := ts.GetReminder(ctx, &store.FindReminder{UID: &uid})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.ScheduledTs)
	assert.Equal(t, scheduled, *got.ScheduledTs)
	assert.Nil(t, got.SentTs)

	status, sent, payload := "sent", int64(6000), `{"delivery":{"browser":true}}`
	require.NoError(t, ts.UpdateReminder(ctx, &store.UpdateReminder{UID: "r1", Status: &status, SentTs: &sent, Payload: &payload}))

	got, err = ts.GetReminder(ctx, &store.FindReminder{UID: &uid})
	require.NoError(t, err)
	assert.Equal(t, "sent", got.Status)
	require.NotNil(t, got.SentTs)
	assert.Equal(t, sent, *got.SentTs)
	assert.JSONEq(t, payload, got.Payload)

	userID := int32(1)
	list, err := ts.ListReminders(ctx, &store.FindReminder{UserID: &userID, Status: &status})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	typ := "question"
	list, err = ts.ListReminders(ctx, &store.FindReminder{UserID: &userID, Type: &typ})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "r2", list[0].UID)

	err = ts.UpdateReminder(ctx, &store.UpdateReminder{UID: "missing", Status: &status})
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	require.NoError(t, ts.DeleteReminder(ctx, &store.DeleteReminder{UID: "r1"}))
	got, err = ts.GetReminder(ctx, &store.FindReminder{UID: &uid})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFollowupStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.CreateFollowup(ctx, &store.Followup{UID: "f2", UserID: 1, ContactUID: "c-ana", Message: "later", Status: "pending", ScheduledTs: 2000})
	require.NoError(t, err)
	_, err = ts.CreateFollowup(ctx, &store.Followup{UID: "f1", UserID: 1, ContactUID: "c-ana", Message: "sooner", Status: "pending", ScheduledTs: 1000})
	require.NoError(t, err)

	userID := int32(1)
	list, err := ts.ListFollowups(ctx, &store.FindFollowup{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "f1", list[0].UID)

	reminderUID, cancelled := "r9", "cancelled"
	require.NoError(t, ts.UpdateFollowup(ctx, &store.UpdateFollowup{UID: "f1", ReminderUID: &reminderUID}))
	require.NoError(t, ts.UpdateFollowup(ctx, &store.UpdateFollowup{UID: "f2", Status: &cancelled}))

	uid := "f1"
	got, err := ts.GetFollowup(ctx, &store.FindFollowup{UID: &uid})
	require.NoError(t, err)
	assert.Equal(t, "r9", got.ReminderUID)

	list, err = ts.ListFollowups(ctx, &store.FindFollowup{UserID: &userID, Status: &cancelled})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "f2", list[0].UID)
}
