package queue

import (
	"context"
	"sync"
	"time"

	"birdbot/internal/slack"
	"github.com/google/uuid"
)

// Item wraps one verified event envelope for transit to the worker loop.
// The id exists only so dispatch and processing logs can be correlated.
type Item struct {
	ID         string
	Envelope   slack.Envelope
	EnqueuedAt time.Time
}

// Queue is an unbounded FIFO handoff between the events endpoint and the
// worker supervisor. Enqueue never blocks; Dequeue waits for an item or
// context cancellation. Safe for concurrent producers.
type Queue struct {
	mu    sync.Mutex
	items []Item
	ready chan struct{}
}

func New() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

func (q *Queue) Enqueue(env slack.Envelope) Item {
	item := Item{
		ID:         uuid.NewString(),
		Envelope:   env,
		EnqueuedAt: time.Now(),
	}

	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return item
}

// Dequeue pops the oldest item, blocking until one is available. It returns
// the context error once ctx is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (Item, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			if len(q.items) > 0 {
				// Keep the wake-up armed; signals coalesce on the
				// buffered channel.
				select {
				case q.ready <- struct{}{}:
				default:
				}
			}
			q.mu.Unlock()
			return item, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Item{}, ctx.Err()
		case <-q.ready:
		}
	}
}

// Len reports the current backlog.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
