package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(contactID string, typ ReminderType, priority Priority) *CreateReminderRequest {
	return &CreateReminderRequest{
		UserID:      1,
		ContactID:   contactID,
		ContactName: "Ana",
		Message:     "Reply to Ana",
		Type:        typ,
		Priority:    priority,
	}
}

func TestCreateReminderDeliversImmediately(t *testing.T) {
	ctx := context.Background()
	svc, browser, tracker, _ := newTestService(DefaultSettings())

	r, err := svc.CreateReminder(ctx, request("c1", TypeOverdue, PriorityHigh))
	require.NoError(t, err)

	assert.Equal(t, StatusSent, r.Status)
	require.NotNil(t, r.SentAt)
	assert.Equal(t, baseTime, *r.SentAt)
	assert.Equal(t, []string{r.ID}, browser.Calls())
	assert.Equal(t, map[string]bool{"browser": true}, r.Metadata[MetaDelivery])
	assert.Equal(t, 1, tracker.Stats("c1").TotalReminders)

	stored, err := svc.Get(ctx, 1, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, stored.Status)
}

func TestCreateReminderDefaultsPriority(t *testing.T) {
	svc, _, _, _ := newTestService(DefaultSettings())
	r, err := svc.CreateReminder(context.Background(), request("c1", TypeQuestion, ""))
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, r.Priority)
}

func TestCreateReminderValidation(t *testing.T) {
	svc, _, _, _ := newTestService(DefaultSettings())
	ctx := context.Background()

	tests := []struct {
		name string
		req  *CreateReminderRequest
	}{
		{"nil", nil},
		{"no user", &CreateReminderRequest{ContactID: "c", Message: "m", Type: TypeOverdue}},
		{"no contact", &CreateReminderRequest{UserID: 1, Message: "m", Type: TypeOverdue}},
		{"no message", &CreateReminderRequest{UserID: 1, ContactID: "c", Type: TypeOverdue}},
		{"bad type", &CreateReminderRequest{UserID: 1, ContactID: "c", Message: "m", Type: "nag"}},
		{"bad priority", &CreateReminderRequest{UserID: 1, ContactID: "c", Message: "m", Type: TypeOverdue, Priority: "extreme"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateReminder(ctx, tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestCreateReminderPersistenceFailureMarksFailed(t *testing.T) {
	dispatcher := NewNotificationDispatcher(time.Second)
	browser := &fakeSender{name: "browser"}
	dispatcher.Register(ChannelBrowser, browser)
	svc := NewService(failingStore{NewMemoryStore()}, dispatcher, nil, nil)

	r, err := svc.CreateReminder(context.Background(), request("c1", TypeOverdue, PriorityHigh))
	require.Error(t, err)
	require.NotNil(t, r)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, "disk full", r.Metadata[MetaFailureReason])
	assert.Empty(t, browser.Calls())
}

func TestCreateReminderDeferredAndDismissed(t *testing.T) {
	ctx := context.Background()
	svc, browser, _, _ := newTestService(DefaultSettings())

	at := baseTime.Add(time.Hour)
	req := request("c1", TypeScheduled, PriorityMedium)
	req.ScheduledFor = &at
	r, err := svc.CreateReminder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, 1, svc.Queued())
	assert.Empty(t, browser.Calls())

	dismissed, err := svc.Dismiss(ctx, 1, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDismissed, dismissed.Status)
	assert.Equal(t, 0, svc.Queued())

	_, err = svc.Dismiss(ctx, 1, r.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDismissWhileDeliveringIsRejected(t *testing.T) {
	ctx := context.Background()
	svc, browser, _, _ := newTestService(DefaultSettings())
	browser.delay = 300 * time.Millisecond

	created := make(chan *Reminder, 1)
	go func() {
		r, err := svc.CreateReminder(ctx, request("c1", TypeOverdue, PriorityHigh))
		assert.NoError(t, err)
		created <- r
	}()
	require.Eventually(t, func() bool { return len(browser.Calls()) == 1 }, time.Second, 5*time.Millisecond)
	id := browser.Calls()[0]

	_, err := svc.Dismiss(ctx, 1, id)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	r := <-created
	assert.Equal(t, StatusSent, r.Status)
	stored, err := svc.Get(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, stored.Status)
}

func TestDeliveryKeepsStatusChangedUnderIt(t *testing.T) {
	ctx := context.Background()
	svc, _, tracker, _ := newTestService(DefaultSettings())

	at := baseTime.Add(time.Hour)
	req := request("c1", TypeScheduled, PriorityMedium)
	req.ScheduledFor = &at
	r, err := svc.CreateReminder(ctx, req)
	require.NoError(t, err)

	// The copy read before delivery is pending; the stored row was dismissed meanwhile.
	stale, err := svc.store.Get(ctx, r.ID)
	require.NoError(t, err)
	_, err = svc.Dismiss(ctx, 1, r.ID)
	require.NoError(t, err)

	require.NoError(t, svc.deliver(ctx, stale))

	stored, err := svc.Get(ctx, 1, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDismissed, stored.Status)
	assert.Nil(t, stored.SentAt)
	assert.Zero(t, tracker.Stats("c1").TotalReminders)
}

func TestPastScheduledForDeliversNow(t *testing.T) {
	svc, browser, _, _ := newTestService(DefaultSettings())
	past := baseTime.Add(-time.Minute)
	req := request("c1", TypeScheduled, PriorityMedium)
	req.ScheduledFor = &past

	r, err := svc.CreateReminder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, r.Status)
	assert.Len(t, browser.Calls(), 1)
	assert.Equal(t, 0, svc.Queued())
}

func TestFireSkipsReminderNoLongerPending(t *testing.T) {
	ctx := context.Background()
	svc, browser, _, _ := newTestService(DefaultSettings())

	at := baseTime.Add(time.Hour)
	req := request("c1", TypeScheduled, PriorityMedium)
	req.ScheduledFor = &at
	r, err := svc.CreateReminder(ctx, req)
	require.NoError(t, err)

	stored, err := svc.store.Get(ctx, r.ID)
	require.NoError(t, err)
	stored.Status = StatusDismissed
	require.NoError(t, svc.store.Update(ctx, stored))

	got, err := svc.fire(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDismissed, got.Status)
	assert.Empty(t, browser.Calls())

	got, err = svc.fire(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeferredReminderFiresFromQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	browser := &fakeSender{name: "browser"}
	dispatcher := NewNotificationDispatcher(time.Second)
	dispatcher.Register(ChannelBrowser, browser)
	svc := NewService(NewMemoryStore(), dispatcher, nil, nil)
	require.NoError(t, svc.Start(ctx))
	defer svc.Stop()

	at := time.Now().Add(30 * time.Millisecond)
	req := request("c1", TypeScheduled, PriorityMedium)
	req.ScheduledFor = &at
	r, err := svc.CreateReminder(ctx, req)
	require.NoError(t, err)
	require.Equal(t, StatusPending, r.Status)

	assert.Eventually(t, func() bool {
		got, err := svc.Get(ctx, 1, r.ID)
		return err == nil && got.Status == StatusSent
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{r.ID}, browser.Calls())
}

func TestStartRestoresPendingReminders(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	future := time.Now().Add(time.Hour)
	require.NoError(t, store.Create(ctx, &Reminder{ID: "r-future", UserID: 1, ContactID: "c1", Type: TypeScheduled, Priority: PriorityLow, Message: "m", Status: StatusPending, ScheduledFor: &future}))
	require.NoError(t, store.Create(ctx, &Reminder{ID: "r-sent", UserID: 1, ContactID: "c1", Type: TypeScheduled, Priority: PriorityLow, Message: "m", Status: StatusSent, ScheduledFor: &future}))

	svc := NewService(store, nil, nil, nil)
	require.NoError(t, svc.Start(ctx))
	defer svc.Stop()
	assert.Equal(t, 1, svc.Queued())
}

func TestChannelFailuresStillMarkSent(t *testing.T) {
	ctx := context.Background()
	dispatcher := NewNotificationDispatcher(time.Second)
	dispatcher.Register(ChannelBrowser, &fakeSender{name: "browser", panic: true})
	dispatcher.Register(ChannelEmail, &fakeSender{name: "email", err: assert.AnError})
	settings := DefaultSettings()
	settings.Email = true
	svc := NewService(NewMemoryStore(), dispatcher, StaticSettings(settings), nil)

	r, err := svc.CreateReminder(ctx, request("c1", TypeOverdue, PriorityHigh))
	require.NoError(t, err)
	assert.Equal(t, StatusSent, r.Status)
	assert.Equal(t, map[string]bool{"browser": false, "email": false}, r.Metadata[MetaDelivery])
}

func TestHighPriorityOnlySuppressesOthers(t *testing.T) {
	ctx := context.Background()
	settings := DefaultSettings()
	settings.HighPriorityOnly = true
	svc, browser, tracker, _ := newTestService(settings)

	low, err := svc.CreateReminder(ctx, request("c1", TypeQuestion, PriorityMedium))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, low.Status)
	assert.True(t, low.Suppressed())
	assert.Empty(t, browser.Calls())

	high, err := svc.CreateReminder(ctx, request("c2", TypeUrgent, PriorityHigh))
	require.NoError(t, err)
	assert.Equal(t, StatusSent, high.Status)
	assert.Len(t, browser.Calls(), 1)

	// The suppressed reminder stays pending across sweeps.
	n, err := svc.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, browser.Calls(), 1)
	assert.Equal(t, 0, tracker.Stats("c1").TotalReminders)
}

func TestProcessDueDeliversDueReminders(t *testing.T) {
	ctx := context.Background()
	svc, browser, _, clock := newTestService(DefaultSettings())

	at := baseTime.Add(time.Hour)
	req := request("c1", TypeScheduled, PriorityMedium)
	req.ScheduledFor = &at
	r, err := svc.CreateReminder(ctx, req)
	require.NoError(t, err)

	n, err := svc.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	clock.Advance(2 * time.Hour)
	n, err = svc.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, svc.Queued())
	assert.Equal(t, []string{r.ID}, browser.Calls())

	n, err = svc.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestResend(t *testing.T) {
	ctx := context.Background()
	svc, browser, _, _ := newTestService(DefaultSettings())

	r, err := svc.CreateReminder(ctx, request("c1", TypeOverdue, PriorityHigh))
	require.NoError(t, err)

	results, err := svc.Resend(ctx, 1, r.ID)
	require.NoError(t, err)
	assert.True(t, results[ChannelBrowser])
	_, err = svc.Resend(ctx, 1, r.ID)
	require.NoError(t, err)

	got, err := svc.Get(ctx, 1, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, got.Status)
	assert.Equal(t, 2, got.Metadata[MetaResendCount])
	assert.Len(t, browser.Calls(), 3)

	at := baseTime.Add(time.Hour)
	req := request("c2", TypeScheduled, PriorityLow)
	req.ScheduledFor = &at
	pending, err := svc.CreateReminder(ctx, req)
	require.NoError(t, err)
	_, err = svc.Resend(ctx, 1, pending.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOwnershipDeleteAndClearAll(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(DefaultSettings())

	r1, err := svc.CreateReminder(ctx, request("c1", TypeOverdue, PriorityHigh))
	require.NoError(t, err)
	_, err = svc.CreateReminder(ctx, request("c2", TypeOverdue, PriorityHigh))
	require.NoError(t, err)
	other := request("c3", TypeOverdue, PriorityHigh)
	other.UserID = 2
	_, err = svc.CreateReminder(ctx, other)
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, r1.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 2, r1.ID), ErrNotFound)

	require.NoError(t, svc.Delete(ctx, 1, r1.ID))
	_, err = svc.Get(ctx, 1, r1.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := svc.ClearAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := svc.List(ctx, 2, "")
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestRecordResponse(t *testing.T) {
	ctx := context.Background()
	svc, _, tracker, clock := newTestService(DefaultSettings())

	first, err := svc.CreateReminder(ctx, request("c1", TypeOverdue, PriorityHigh))
	require.NoError(t, err)
	clock.Advance(time.Hour)
	second, err := svc.CreateReminder(ctx, request("c1", TypeQuestion, PriorityMedium))
	require.NoError(t, err)

	// A reply before any reminder went out credits nothing.
	ok, err := svc.RecordResponse(ctx, 1, "c1", baseTime.Add(-time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.RecordResponse(ctx, 1, "c1", baseTime.Add(3*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := svc.Get(ctx, 1, second.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Metadata, MetaRespondedAt)

	stats := tracker.Stats("c1")
	assert.Equal(t, 2, stats.TotalReminders)
	assert.Equal(t, 1, stats.Responded)
	assert.InDelta(t, 0.5, stats.ResponseRate, 1e-9)
	assert.Equal(t, 2*time.Hour, stats.AvgResponseTime)

	ok, err = svc.RecordResponse(ctx, 1, "c1", baseTime.Add(4*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
	got, err = svc.Get(ctx, 1, first.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Metadata, MetaRespondedAt)

	ok, err = svc.RecordResponse(ctx, 1, "c1", baseTime.Add(5*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeliveryHooks(t *testing.T) {
	svc, _, _, _ := newTestService(DefaultSettings())
	var delivered []string
	svc.OnDelivered(func(_ context.Context, r *Reminder) {
		delivered = append(delivered, r.ID)
	})

	r, err := svc.CreateReminder(context.Background(), request("c1", TypeOverdue, PriorityHigh))
	require.NoError(t, err)
	assert.Equal(t, []string{r.ID}, delivered)
}
