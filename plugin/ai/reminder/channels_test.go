package reminder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReminder() *Reminder {
	return &Reminder{
		ID:          "r1",
		UserID:      1,
		ContactID:   "c1",
		ContactName: "Ana",
		Type:        TypeOverdue,
		Priority:    PriorityHigh,
		Message:     "Ana has been waiting 30h",
		Status:      StatusPending,
	}
}

func TestDispatchIsolatesChannels(t *testing.T) {
	d := NewNotificationDispatcher(50 * time.Millisecond)
	d.Register(ChannelBrowser, &fakeSender{name: "browser"})
	d.Register(ChannelEmail, &fakeSender{name: "email", panic: true})
	d.Register(ChannelTelegram, &fakeSender{name: "telegram", delay: time.Second})
	d.Register(ChannelWebhook, &fakeSender{name: "webhook", err: assert.AnError})

	assert.True(t, d.Registered(ChannelBrowser))

	start := time.Now()
	results := d.Dispatch(context.Background(), testReminder(), []Channel{ChannelBrowser, ChannelEmail, ChannelTelegram, ChannelWebhook})
	assert.Less(t, time.Since(start), time.Second)

	assert.Equal(t, map[Channel]bool{
		ChannelBrowser:  true,
		ChannelEmail:    false,
		ChannelTelegram: false,
		ChannelWebhook:  false,
	}, results)
}

func TestDispatchSkipsUnregistered(t *testing.T) {
	d := NewNotificationDispatcher(0)
	results := d.Dispatch(context.Background(), testReminder(), []Channel{ChannelEmail})
	assert.Empty(t, results)
}

func TestBrowserSender(t *testing.T) {
	ctx := context.Background()
	feed := NewMemoryAppNotificationStore(2)
	sender := NewBrowserSender(feed)

	for _, id := range []string{"r1", "r2", "r3"} {
		r := testReminder()
		r.ID = id
		require.NoError(t, sender.Send(ctx, r))
	}

	list, err := feed.ListNotifications(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r3", list[0].ReminderID)
	assert.Equal(t, "r2", list[1].ReminderID)
	assert.Equal(t, "Overdue reply to Ana", list[0].Title)

	list, err = feed.ListNotifications(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWebhookSender(t *testing.T) {
	var got WebhookPayload
	var secret string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret = r.Header.Get("X-Webhook-Secret")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sender := NewWebhookSender(WebhookConfig{URL: server.URL, Secret: "s3cret"})
	require.NoError(t, sender.Send(context.Background(), testReminder()))
	assert.Equal(t, "s3cret", secret)
	assert.Equal(t, "reminder.triggered", got.Event)
	require.NotNil(t, got.Reminder)
	assert.Equal(t, "r1", got.Reminder.ID)
}

func TestWebhookSenderErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewWebhookSender(WebhookConfig{URL: server.URL}).Send(context.Background(), testReminder())
	assert.ErrorContains(t, err, "502")
}

func TestTitle(t *testing.T) {
	r := testReminder()
	for typ, want := range map[ReminderType]string{
		TypeUrgent:    "Urgent: reply to Ana",
		TypeOverdue:   "Overdue reply to Ana",
		TypeQuestion:  "Ana asked you something",
		TypeCheckin:   "Time to check in with Ana",
		TypeScheduled: "Follow up with Ana",
	} {
		r.Type = typ
		assert.Equal(t, want, Title(r))
	}
}
