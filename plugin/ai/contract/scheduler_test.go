package contract

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/followup/plugin/ai/reminder"
)

type fakeEmitter struct {
	mu   sync.Mutex
	reqs []*reminder.CreateReminderRequest
	err  error
}

func (e *fakeEmitter) CreateReminder(_ context.Context, req *reminder.CreateReminderRequest) (*reminder.Reminder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reqs = append(e.reqs, req)
	if e.err != nil {
		return nil, e.err
	}
	return &reminder.Reminder{ID: "r" + req.ContactID, ContactID: req.ContactID, Type: req.Type, Metadata: req.Metadata}, nil
}

func (e *fakeEmitter) Requests() []*reminder.CreateReminderRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*reminder.CreateReminderRequest(nil), e.reqs...)
}

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func newTestScheduler(settings reminder.Settings, now time.Time, opts ...Option) (*Scheduler, *MemoryStore, *fakeEmitter) {
	store := NewMemoryStore()
	emitter := &fakeEmitter{}
	s := NewScheduler(store, emitter, reminder.StaticSettings(settings), opts...)
	s.now = func() time.Time { return now }
	return s, store, emitter
}

func TestAdvanceWeeklyIgnoresNow(t *testing.T) {
	s, _, _ := newTestScheduler(reminder.DefaultSettings(), at(2024, 1, 1, 0, 0))
	last := at(2024, 1, 1, 9, 0)
	c := &Contract{Frequency: FrequencyWeekly, TimeOfDay: TimeOfDay{Hour: 9}, LastCheckin: &last}

	for _, now := range []time.Time{
		at(2023, 12, 1, 0, 0),
		at(2024, 1, 1, 9, 0),
		at(2024, 1, 5, 17, 45),
		at(2025, 6, 1, 0, 0),
	} {
		assert.Equal(t, at(2024, 1, 8, 9, 0), s.Advance(c, now), now.String())
	}
}

func TestAdvanceOverwritesTimeOfDay(t *testing.T) {
	s, _, _ := newTestScheduler(reminder.DefaultSettings(), at(2024, 1, 1, 0, 0))
	last := at(2024, 1, 31, 22, 15)
	c := &Contract{Frequency: FrequencyMonthly, TimeOfDay: TimeOfDay{Hour: 7, Minute: 30}, LastCheckin: &last}
	assert.Equal(t, at(2024, 2, 29, 7, 30), s.Advance(c, time.Time{}))
}

func TestAdvanceEnforcesDaysOfWeek(t *testing.T) {
	s, _, _ := newTestScheduler(reminder.DefaultSettings(), at(2024, 1, 1, 0, 0))
	// Friday 2024-03-01 + 1 day = Saturday, rolled to Monday.
	last := at(2024, 3, 1, 9, 0)
	c := &Contract{
		Frequency:   FrequencyDaily,
		TimeOfDay:   TimeOfDay{Hour: 9},
		DaysOfWeek:  []time.Weekday{time.Monday, time.Wednesday},
		LastCheckin: &last,
	}
	assert.Equal(t, at(2024, 3, 4, 9, 0), s.Advance(c, last))
}

func TestAdvanceUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	s, _, _ := newTestScheduler(reminder.DefaultSettings(), at(2024, 1, 1, 0, 0), WithLocation(tokyo))

	// 2024-03-01 20:00 UTC is already 2024-03-02 05:00 in Tokyo.
	last := at(2024, 3, 1, 20, 0)
	c := &Contract{Frequency: FrequencyDaily, TimeOfDay: TimeOfDay{Hour: 9}, LastCheckin: &last}
	next := s.Advance(c, last)
	assert.True(t, next.Equal(time.Date(2024, 3, 3, 9, 0, 0, 0, tokyo)), next.String())
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	// Friday afternoon.
	now := at(2024, 3, 1, 15, 0)
	s, store, _ := newTestScheduler(reminder.DefaultSettings(), now)

	c, err := s.Create(ctx, CreateContractRequest{
		UserID:      1,
		ContactID:   "ana",
		ContactName: "Ana",
		Frequency:   "daily",
		TimeOfDay:   "09:00",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, StatusActive, c.Status)
	assert.Nil(t, c.LastCheckin)
	assert.Equal(t, at(2024, 3, 2, 9, 0), c.NextCheckin)

	weekdays, err := s.Create(ctx, CreateContractRequest{
		UserID:     1,
		ContactID:  "bo",
		Frequency:  "daily",
		TimeOfDay:  "9:00",
		DaysOfWeek: []time.Weekday{time.Wednesday, time.Monday, time.Monday},
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, weekdays.DaysOfWeek)
	assert.Equal(t, at(2024, 3, 4, 9, 0), weekdays.NextCheckin)

	list, err := store.List(ctx, Filter{UserID: 1})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCreateValidation(t *testing.T) {
	s, _, _ := newTestScheduler(reminder.DefaultSettings(), at(2024, 3, 1, 15, 0))
	tests := []struct {
		name string
		req  CreateContractRequest
	}{
		{"no user", CreateContractRequest{ContactID: "a", Frequency: "daily", TimeOfDay: "09:00"}},
		{"no contact", CreateContractRequest{UserID: 1, Frequency: "daily", TimeOfDay: "09:00"}},
		{"bad frequency", CreateContractRequest{UserID: 1, ContactID: "a", Frequency: "hourly", TimeOfDay: "09:00"}},
		{"bad time", CreateContractRequest{UserID: 1, ContactID: "a", Frequency: "daily", TimeOfDay: "noon"}},
		{"bad weekday", CreateContractRequest{UserID: 1, ContactID: "a", Frequency: "daily", TimeOfDay: "09:00", DaysOfWeek: []time.Weekday{9}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidContract)
		})
	}
}

func TestFireRecomputesFromFiringInstant(t *testing.T) {
	ctx := context.Background()
	s, store, emitter := newTestScheduler(reminder.DefaultSettings(), at(2024, 3, 1, 0, 0))

	last := at(2024, 3, 1, 9, 0)
	c := &Contract{
		ID:          "k1",
		UserID:      1,
		ContactID:   "ana",
		ContactName: "Ana",
		Frequency:   FrequencyDaily,
		TimeOfDay:   TimeOfDay{Hour: 9},
		Status:      StatusActive,
		LastCheckin: &last,
		NextCheckin: at(2024, 3, 2, 9, 0),
	}
	require.NoError(t, store.Create(ctx, c))

	fired := at(2024, 3, 2, 10, 0)
	r, err := s.Fire(ctx, c, fired)
	require.NoError(t, err)
	require.NotNil(t, r)

	stored, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, stored.LastCheckin)
	assert.Equal(t, fired, *stored.LastCheckin)
	assert.Equal(t, at(2024, 3, 3, 9, 0), stored.NextCheckin)

	reqs := emitter.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, reminder.TypeCheckin, reqs[0].Type)
	assert.Equal(t, int32(1), reqs[0].UserID)
	assert.Equal(t, "Ana", reqs[0].ContactName)
	assert.Equal(t, "k1", reqs[0].Metadata[reminder.MetaContractID])
	assert.Contains(t, reqs[0].Message, "daily check-in with Ana")
}

func TestFireWithoutScheduledReminders(t *testing.T) {
	ctx := context.Background()
	settings := reminder.DefaultSettings()
	settings.ScheduledReminders = false
	s, store, emitter := newTestScheduler(settings, at(2024, 3, 1, 0, 0))

	c := &Contract{ID: "k1", UserID: 1, ContactID: "ana", Frequency: FrequencyWeekly, TimeOfDay: TimeOfDay{Hour: 9}, Status: StatusActive, NextCheckin: at(2024, 3, 1, 9, 0)}
	require.NoError(t, store.Create(ctx, c))

	r, err := s.Fire(ctx, c, at(2024, 3, 1, 9, 0))
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Empty(t, emitter.Requests())

	stored, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, at(2024, 3, 8, 9, 0), stored.NextCheckin)
}

func TestFireEmitterFailureLeavesContract(t *testing.T) {
	ctx := context.Background()
	s, store, emitter := newTestScheduler(reminder.DefaultSettings(), at(2024, 3, 1, 0, 0))
	emitter.err = errors.New("store down")

	c := &Contract{ID: "k1", UserID: 1, ContactID: "ana", Frequency: FrequencyDaily, TimeOfDay: TimeOfDay{Hour: 9}, Status: StatusActive, NextCheckin: at(2024, 3, 1, 9, 0)}
	require.NoError(t, store.Create(ctx, c))

	_, err := s.Fire(ctx, c, at(2024, 3, 1, 9, 5))
	require.Error(t, err)

	stored, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, stored.LastCheckin)
	assert.Equal(t, at(2024, 3, 1, 9, 0), stored.NextCheckin)
}

// failingUpdateStore rejects every Update and delegates the rest.
type failingUpdateStore struct {
	*MemoryStore
}

func (failingUpdateStore) Update(context.Context, *Contract) error {
	return errors.New("disk full")
}

func TestFireUpdateFailureEmitsNothing(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	emitter := &fakeEmitter{}
	s := NewScheduler(failingUpdateStore{mem}, emitter, reminder.StaticSettings(reminder.DefaultSettings()))

	c := &Contract{ID: "k1", UserID: 1, ContactID: "ana", Frequency: FrequencyDaily, TimeOfDay: TimeOfDay{Hour: 9}, Status: StatusActive, NextCheckin: at(2024, 3, 1, 9, 0)}
	require.NoError(t, mem.Create(ctx, c))

	for range 2 {
		_, err := s.Fire(ctx, c, at(2024, 3, 1, 9, 5))
		require.Error(t, err)
	}
	assert.Empty(t, emitter.Requests())
	assert.Nil(t, c.LastCheckin)
	assert.Equal(t, at(2024, 3, 1, 9, 0), c.NextCheckin)
}

func TestFireRejectsInactive(t *testing.T) {
	s, _, _ := newTestScheduler(reminder.DefaultSettings(), at(2024, 3, 1, 0, 0))
	_, err := s.Fire(context.Background(), &Contract{Status: StatusPaused}, at(2024, 3, 1, 0, 0))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDueContractsAndFireDue(t *testing.T) {
	ctx := context.Background()
	now := at(2024, 3, 5, 12, 0)
	s, store, emitter := newTestScheduler(reminder.DefaultSettings(), now)

	for _, c := range []*Contract{
		{ID: "due-1", UserID: 1, ContactID: "ana", Frequency: FrequencyDaily, Status: StatusActive, NextCheckin: at(2024, 3, 5, 9, 0)},
		{ID: "due-2", UserID: 2, ContactID: "bo", Frequency: FrequencyWeekly, Status: StatusActive, NextCheckin: now},
		{ID: "later", UserID: 1, ContactID: "cy", Frequency: FrequencyDaily, Status: StatusActive, NextCheckin: now.Add(time.Minute)},
		{ID: "paused", UserID: 1, ContactID: "dee", Frequency: FrequencyDaily, Status: StatusPaused, NextCheckin: at(2024, 3, 1, 9, 0)},
	} {
		require.NoError(t, store.Create(ctx, c))
	}

	due, err := s.DueContracts(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "due-1", due[0].ID)
	assert.Equal(t, "due-2", due[1].ID)

	n, err := s.FireDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, emitter.Requests(), 2)

	due, err = s.DueContracts(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestLifecycleTransitions(t *testing.T) {
	ctx := context.Background()
	now := at(2024, 3, 1, 15, 0)
	s, _, _ := newTestScheduler(reminder.DefaultSettings(), now)

	c, err := s.Create(ctx, CreateContractRequest{UserID: 1, ContactID: "ana", Frequency: "daily", TimeOfDay: "09:00"})
	require.NoError(t, err)

	_, err = s.Pause(ctx, 2, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	paused, err := s.Pause(ctx, 1, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, paused.Status)

	_, err = s.Pause(ctx, 1, c.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Resuming after the missed check-in skips it.
	s.now = func() time.Time { return at(2024, 3, 10, 12, 0) }
	resumed, err := s.Resume(ctx, 1, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, resumed.Status)
	assert.Equal(t, at(2024, 3, 11, 9, 0), resumed.NextCheckin)

	completed, err := s.Complete(ctx, 1, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)

	_, err = s.Resume(ctx, 1, c.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.Complete(ctx, 1, c.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	list, err := s.List(ctx, 1, StatusCompleted)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSchedulerDrivesReminderService(t *testing.T) {
	ctx := context.Background()
	dispatcher := reminder.NewNotificationDispatcher(time.Second)
	feed := reminder.NewMemoryAppNotificationStore(10)
	dispatcher.Register(reminder.ChannelBrowser, reminder.NewBrowserSender(feed))
	settings := reminder.StaticSettings(reminder.DefaultSettings())
	svc := reminder.NewService(reminder.NewMemoryStore(), dispatcher, settings, reminder.NewEffectivenessTracker())

	s := NewScheduler(NewMemoryStore(), svc, settings)
	s.now = func() time.Time { return at(2024, 3, 1, 8, 0) }
	c, err := s.Create(ctx, CreateContractRequest{UserID: 1, ContactID: "ana", ContactName: "Ana", Frequency: "daily", TimeOfDay: "09:00"})
	require.NoError(t, err)

	r, err := s.Fire(ctx, c, at(2024, 3, 2, 9, 0))
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, reminder.StatusSent, r.Status)
	assert.Equal(t, reminder.TypeCheckin, r.Type)

	notes, err := feed.ListNotifications(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Time to check in with Ana", notes[0].Title)
}
