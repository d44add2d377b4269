package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingSender struct {
	mu    sync.Mutex
	got   []Notification
	block chan struct{}
	err   error
}

func (s *recordingSender) Send(n Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.got = append(s.got, n)
	s.mu.Unlock()
	return s.err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func TestQueueDeliversInOrder(t *testing.T) {
	sender := &recordingSender{}
	q := NewQueue(sender)
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	for i := 0; i < 3; i++ {
		if !q.Enqueue(Notification{Title: string(rune('a' + i))}) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}

	deadline := time.After(2 * time.Second)
	for sender.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("delivered %d of 3", sender.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	q.Wait()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	for i, n := range sender.got {
		if n.Title != string(rune('a'+i)) {
			t.Fatalf("order broken: %v", sender.got)
		}
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	q := NewQueue(sender)
	// No worker running: the channel fills to capacity.

	for i := 0; i < QueueCapacity; i++ {
		if !q.Enqueue(Notification{Title: "n"}) {
			t.Fatalf("enqueue %d rejected before capacity", i)
		}
	}
	if q.Enqueue(Notification{Title: "overflow"}) {
		t.Fatal("expected overflow drop")
	}
	if q.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", q.Dropped())
	}
}

func TestQueueSwallowsDeliveryErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("toast broke")}
	q := NewQueue(sender)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	if !q.Enqueue(Notification{Title: "x"}) {
		t.Fatal("enqueue rejected")
	}
	deadline := time.After(2 * time.Second)
	for sender.count() < 1 {
		select {
		case <-deadline:
			t.Fatal("notification never attempted")
		case <-time.After(5 * time.Millisecond):
		}
	}
	// A failed delivery must not stop the worker.
	if !q.Enqueue(Notification{Title: "y"}) {
		t.Fatal("second enqueue rejected")
	}
	deadline = time.After(2 * time.Second)
	for sender.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("worker died after delivery error")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
