package waveq

import (
	"context"
	"sync"
	"testing"
	"time"
)

func collect(t *testing.T) (*Queue, func() []Item) {
	t.Helper()
	var mu sync.Mutex
	var got []Item
	q := New(func(it Item) {
		mu.Lock()
		got = append(got, it)
		mu.Unlock()
	})
	return q, func() []Item {
		mu.Lock()
		defer mu.Unlock()
		out := make([]Item, len(got))
		copy(out, got)
		return out
	}
}

func TestDeliveryOrderIgnoresEnqueueOrder(t *testing.T) {
	q, got := collect(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	now := time.Now()
	// B enqueued second but fires first.
	q.Enqueue("room", now.Add(120*time.Millisecond), "A")
	q.Enqueue("room", now.Add(40*time.Millisecond), "B")

	time.Sleep(300 * time.Millisecond)
	items := got()
	if len(items) != 2 {
		t.Fatalf("delivered %d items, want 2", len(items))
	}
	if items[0].Payload != "B" || items[1].Payload != "A" {
		t.Fatalf("wrong order: %v, %v", items[0].Payload, items[1].Payload)
	}
}

func TestSameInstantKeepsEnqueueOrder(t *testing.T) {
	q, got := collect(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	at := time.Now().Add(50 * time.Millisecond)
	q.Enqueue("room", at, 1)
	q.Enqueue("room", at, 2)
	q.Enqueue("room", at, 3)

	time.Sleep(200 * time.Millisecond)
	items := got()
	if len(items) != 3 {
		t.Fatalf("delivered %d items, want 3", len(items))
	}
	for i, it := range items {
		if it.Payload != i+1 {
			t.Fatalf("item %d has payload %v", i, it.Payload)
		}
	}
}

func TestCancelToken(t *testing.T) {
	q, got := collect(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	tok := q.Enqueue("room", time.Now().Add(80*time.Millisecond), "doomed")
	if !tok.Cancel() {
		t.Fatal("Cancel before fire should report true")
	}
	if tok.Cancel() {
		t.Fatal("second Cancel should report false")
	}

	time.Sleep(200 * time.Millisecond)
	if items := got(); len(items) != 0 {
		t.Fatalf("cancelled item was delivered: %v", items)
	}
}

func TestCancelKeyLeavesOtherKeysAlone(t *testing.T) {
	q, got := collect(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	at := time.Now().Add(80 * time.Millisecond)
	q.Enqueue("a", at, "a1")
	q.Enqueue("a", at.Add(10*time.Millisecond), "a2")
	q.Enqueue("b", at, "b1")

	if n := q.CancelKey("a"); n != 2 {
		t.Fatalf("CancelKey dropped %d items, want 2", n)
	}

	time.Sleep(250 * time.Millisecond)
	items := got()
	if len(items) != 1 || items[0].Payload != "b1" {
		t.Fatalf("unexpected deliveries: %+v", items)
	}
}

func TestCancelMatching(t *testing.T) {
	q, _ := collect(t)
	at := time.Now().Add(time.Hour)
	q.Enqueue("room", at, "keep")
	q.Enqueue("room", at, "drop")
	q.Enqueue("room", at, "drop")

	n := q.CancelMatching("room", func(p any) bool { return p == "drop" })
	if n != 2 {
		t.Fatalf("matched %d, want 2", n)
	}
	if q.Len() != 1 {
		t.Fatalf("queue has %d pending, want 1", q.Len())
	}
}

func TestCancelAfterFireReportsFalse(t *testing.T) {
	q, got := collect(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	tok := q.Enqueue("room", time.Now().Add(20*time.Millisecond), "fast")
	time.Sleep(150 * time.Millisecond)

	if tok.Cancel() {
		t.Fatal("Cancel after delivery should report false")
	}
	if items := got(); len(items) != 1 {
		t.Fatalf("delivered %d items, want 1", len(items))
	}
}
