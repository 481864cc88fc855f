// Package waveq provides a timed delivery queue: items are enqueued with an
// absolute fire time and delivered by a single dispatcher goroutine in
// non-decreasing fire-time order. Every item belongs to a key (e.g. a room
// id); items of one key can be cancelled together without touching other
// keys.
//
// Typical usage:
//
//	q := waveq.New(func(it waveq.Item) {
//	    send(it.Key, it.Payload)
//	})
//	go q.Run(ctx)
//
//	tok := q.Enqueue("room-1", time.Now().Add(2*time.Second), payload)
//	// later...
//	tok.Cancel()           // one item
//	q.CancelKey("room-1")  // everything still pending for the key
//
// Cancellation races resolve in favor of whichever side wins: once the
// dispatcher has popped an item for delivery, Cancel reports false and the
// item is delivered exactly once; before that, Cancel wins and the item is
// never delivered.
package waveq

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Item is what the delivery callback receives.
type Item struct {
	ID      uint64
	Key     string
	FireAt  time.Time
	Payload any
}

// DeliverFunc is called from the dispatcher goroutine for each fired item.
// It must not block for long; slow consumers stall every key.
type DeliverFunc func(Item)

type entry struct {
	item      Item
	seq       uint64
	cancelled bool
	index     int
}

// Token identifies one enqueued item and allows cancelling it.
type Token struct {
	q *Queue
	e *entry
}

// Cancel removes the item if it has not been dispatched yet. Reports
// whether this call removed it: false when the item already fired or an
// earlier cancellation (Cancel, CancelKey, CancelMatching) got it first.
func (t Token) Cancel() bool {
	if t.q == nil || t.e == nil {
		return false
	}
	t.q.mu.Lock()
	defer t.q.mu.Unlock()
	if t.e.index < 0 {
		// Already popped (delivered or being delivered) or already cancelled.
		return false
	}
	t.e.cancelled = true
	heap.Remove(&t.q.heap, t.e.index)
	return true
}

// Queue is a min-heap of timed items drained by Run. Safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	heap    entryHeap
	nextSeq uint64
	nextID  uint64
	wake    chan struct{}
	deliver DeliverFunc
}

// New creates a Queue. deliver may not be nil.
func New(deliver DeliverFunc) *Queue {
	return &Queue{
		wake:    make(chan struct{}, 1),
		deliver: deliver,
	}
}

// Enqueue schedules payload for delivery at fireAt under key.
func (q *Queue) Enqueue(key string, fireAt time.Time, payload any) Token {
	q.mu.Lock()
	q.nextID++
	q.nextSeq++
	e := &entry{
		item: Item{ID: q.nextID, Key: key, FireAt: fireAt, Payload: payload},
		seq:  q.nextSeq,
	}
	heap.Push(&q.heap, e)
	q.mu.Unlock()
	q.poke()
	return Token{q: q, e: e}
}

// CancelKey drops every pending item for key. Returns how many were dropped.
func (q *Queue) CancelKey(key string) int {
	return q.CancelMatching(key, func(any) bool { return true })
}

// CancelMatching drops pending items for key whose payload satisfies match.
func (q *Queue) CancelMatching(key string, match func(payload any) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	var victims []*entry
	for _, e := range q.heap {
		if e.item.Key == key && match(e.item.Payload) {
			victims = append(victims, e)
		}
	}
	for _, e := range victims {
		e.cancelled = true
		heap.Remove(&q.heap, e.index)
	}
	return len(victims)
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// Run drains the queue until ctx is done. Call in exactly one goroutine.
func (q *Queue) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		q.mu.Lock()
		if len(q.heap) == 0 {
			q.mu.Unlock()
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
			}
			continue
		}
		next := q.heap[0]
		wait := time.Until(next.item.FireAt)
		if wait <= 0 {
			e := heap.Pop(&q.heap).(*entry)
			q.mu.Unlock()
			if !e.cancelled {
				q.deliver(e.item)
			}
			continue
		}
		q.mu.Unlock()

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-q.wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-timer.C:
		}
	}
}

func (q *Queue) poke() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// entryHeap orders by fire time, then by enqueue sequence so same-instant
// items keep their enqueue order.
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].item.FireAt.Equal(h[j].item.FireAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].item.FireAt.Before(h[j].item.FireAt)
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	e.index = -1
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
