package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"birdbot/internal/slack"
)

func TestFIFOOrder(t *testing.T) {
	q := New()
	for i := 0; i < 10; i++ {
		q.Enqueue(slack.Envelope{TeamID: fmt.Sprintf("T%d", i)})
	}
	if q.Len() != 10 {
		t.Fatalf("expected backlog 10, got %d", q.Len())
	}

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		item, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue %d: %v", i, err)
		}
		if want := fmt.Sprintf("T%d", i); item.Envelope.TeamID != want {
			t.Fatalf("dequeue %d: expected %s, got %s", i, want, item.Envelope.TeamID)
		}
		if item.ID == "" {
			t.Fatalf("dequeue %d: missing item id", i)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty backlog, got %d", q.Len())
	}
}

func TestConcurrentProducersSingleConsumer(t *testing.T) {
	const producers = 8
	const perProducer = 50

	q := New()
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(slack.Envelope{TeamID: fmt.Sprintf("%d:%d", p, i)})
			}
		}(p)
	}
	wg.Wait()

	ctx := context.Background()
	lastSeen := make([]int, producers)
	for i := range lastSeen {
		lastSeen[i] = -1
	}
	seen := 0
	for seen < producers*perProducer {
		item, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		parts := strings.SplitN(item.Envelope.TeamID, ":", 2)
		p, _ := strconv.Atoi(parts[0])
		i, _ := strconv.Atoi(parts[1])
		// Per-producer order must survive interleaving.
		if i <= lastSeen[p] {
			t.Fatalf("producer %d: item %d delivered after %d", p, i, lastSeen[p])
		}
		lastSeen[p] = i
		seen++
	}
	for p, last := range lastSeen {
		if last != perProducer-1 {
			t.Fatalf("producer %d: last item %d, expected %d", p, last, perProducer-1)
		}
	}
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := New()
	got := make(chan Item, 1)

	go func() {
		item, err := q.Dequeue(context.Background())
		if err != nil {
			return
		}
		got <- item
	}()

	select {
	case <-got:
		t.Fatal("dequeue returned before any enqueue")
	case <-time.After(20 * time.Millisecond):
	}

	q.Enqueue(slack.Envelope{TeamID: "T1"})

	select {
	case item := <-got:
		if item.Envelope.TeamID != "T1" {
			t.Fatalf("unexpected item %+v", item)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake after enqueue")
	}
}

func TestDequeueCancellation(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not observe cancellation")
	}
}
