package reminder

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeSender struct {
	name  string
	err   error
	panic bool
	delay time.Duration

	mu    sync.Mutex
	calls []string
}

func (f *fakeSender) Send(ctx context.Context, r *Reminder) error {
	f.mu.Lock()
	f.calls = append(f.calls, r.ID)
	f.mu.Unlock()
	if f.panic {
		panic("sender exploded")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// failingStore fails Create and delegates the rest.
type failingStore struct {
	*MemoryStore
}

func (failingStore) Create(context.Context, *Reminder) error {
	return errors.New("disk full")
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// newTestService builds a service with one browser sender and a fixed clock.
func newTestService(settings Settings) (*Service, *fakeSender, *EffectivenessTracker, *fixedClock) {
	browser := &fakeSender{name: "browser"}
	dispatcher := NewNotificationDispatcher(time.Second)
	dispatcher.Register(ChannelBrowser, browser)
	tracker := NewEffectivenessTracker()
	svc := NewService(NewMemoryStore(), dispatcher, StaticSettings(settings), tracker)
	clock := &fixedClock{now: baseTime}
	svc.now = clock.Now
	return svc, browser, tracker, clock
}
