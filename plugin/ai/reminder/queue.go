package reminder

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"
)

// FireFunc is invoked when a queued id comes due.
type FireFunc func(ctx context.Context, id string)

// DelayQueue holds deferred reminder ids ordered by due time and fires them with a single timer.
// Ids can be cancelled or rescheduled before they fire.
type DelayQueue struct {
	fire   FireFunc
	now    func() time.Time
	logger *slog.Logger

	mu    sync.Mutex
	items delayHeap
	index map[string]*delayItem

	wake    chan struct{}
	stopCh  chan struct{}
	running bool
	wg      sync.WaitGroup
}

type delayItem struct {
	id    string
	at    time.Time
	index int
}

// NewDelayQueue creates a queue that calls fire for each due id.
func NewDelayQueue(fire FireFunc) *DelayQueue {
	return &DelayQueue{
		fire:   fire,
		now:    time.Now,
		logger: slog.Default(),
		index:  make(map[string]*delayItem),
		wake:   make(chan struct{}, 1),
	}
}

// Schedule queues id to fire at at, replacing any earlier schedule for id.
func (q *DelayQueue) Schedule(id string, at time.Time) {
	q.mu.Lock()
	if it, ok := q.index[id]; ok {
		it.at = at
		heap.Fix(&q.items, it.index)
	} else {
		it := &delayItem{id: id, at: at}
		heap.Push(&q.items, it)
		q.index[id] = it
	}
	q.mu.Unlock()
	q.signal()
}

// Cancel removes id from the queue and reports whether it was queued.
func (q *DelayQueue) Cancel(id string) bool {
	q.mu.Lock()
	it, ok := q.index[id]
	if ok {
		heap.Remove(&q.items, it.index)
		delete(q.index, id)
	}
	q.mu.Unlock()
	if ok {
		q.signal()
	}
	return ok
}

// Len returns the number of queued ids.
func (q *DelayQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Next returns the earliest due time.
func (q *DelayQueue) Next() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return time.Time{}, false
	}
	return q.items[0].at, true
}

// Start runs the timer loop until ctx is done or Stop is called.
func (q *DelayQueue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.stopCh = make(chan struct{})
	q.mu.Unlock()

	q.wg.Add(1)
	go q.run(ctx)
}

// Stop stops the loop and waits for an in-flight fire to return.
func (q *DelayQueue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopCh)
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *DelayQueue) run(ctx context.Context) {
	defer q.wg.Done()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		due, wait, pending := q.popDue()
		for _, id := range due {
			q.fire(ctx, id)
		}
		if len(due) > 0 {
			continue
		}

		if pending {
			timer.Reset(wait)
		} else {
			timer.Stop()
		}

		select {
		case <-ctx.Done():
			return
		case <-q.stopCh:
			return
		case <-q.wake:
		case <-timer.C:
		}
	}
}

// popDue removes every due item and reports the wait until the next one.
func (q *DelayQueue) popDue() (due []string, wait time.Duration, pending bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	for len(q.items) > 0 && !q.items[0].at.After(now) {
		it := heap.Pop(&q.items).(*delayItem)
		delete(q.index, it.id)
		due = append(due, it.id)
	}
	if len(q.items) == 0 {
		return due, 0, false
	}
	return due, q.items[0].at.Sub(now), true
}

func (q *DelayQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// delayHeap implements heap.Interface ordered by due time.
type delayHeap []*delayItem

func (h delayHeap) Len() int { return len(h) }

func (h delayHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }

func (h delayHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *delayHeap) Push(x any) {
	it := x.(*delayItem)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *delayHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}
