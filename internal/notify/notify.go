// Package notify delivers desktop notifications through a bounded queue so
// slow notification I/O never blocks the capture cycle.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// QueueCapacity bounds pending notifications. Enqueue drops on overflow.
const QueueCapacity = 10

// Notification is one user-facing message.
type Notification struct {
	Title    string
	Message  string
	Duration time.Duration
}

// Sender delivers one notification. Implementations shell out to the
// platform's notification tool.
type Sender interface {
	Send(n Notification) error
}

// Queue drains notifications on a single background worker. Delivery
// failures are logged and dropped; they are never surfaced to the producer.
type Queue struct {
	sender Sender
	ch     chan Notification

	mu      sync.Mutex
	started bool
	done    chan struct{}

	dropped int64
}

// NewQueue creates a bounded notification queue in front of a sender.
func NewQueue(sender Sender) *Queue {
	return &Queue{
		sender: sender,
		ch:     make(chan Notification, QueueCapacity),
	}
}

// Start launches the delivery worker. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true
	q.done = make(chan struct{})
	go q.run(ctx)
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-q.ch:
			if err := q.sender.Send(n); err != nil {
				slog.Warn("notification delivery failed", "title", n.Title, "error", err)
			}
		}
	}
}

// Wait blocks until the worker has exited after context cancellation.
func (q *Queue) Wait() {
	q.mu.Lock()
	done := q.done
	q.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Enqueue offers a notification without blocking. Returns false when the
// queue is full and the notification was dropped.
func (q *Queue) Enqueue(n Notification) bool {
	select {
	case q.ch <- n:
		return true
	default:
		q.mu.Lock()
		q.dropped++
		dropped := q.dropped
		q.mu.Unlock()
		slog.Warn("notification queue full, dropping", "title", n.Title, "dropped_total", dropped)
		return false
	}
}

// Dropped reports how many notifications overflowed the queue.
func (q *Queue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
