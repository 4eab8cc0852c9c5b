package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"birdbot/internal/queue"
	"birdbot/internal/slack"
)

type fakeProcessor struct {
	mu      sync.Mutex
	seen    []string
	errFor  map[string]error
	block   chan struct{} // when set, Process waits on it
	started chan string
}

func (f *fakeProcessor) Process(ctx context.Context, env slack.Envelope) error {
	if f.started != nil {
		f.started <- env.TeamID
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.seen = append(f.seen, env.TeamID)
	f.mu.Unlock()
	if err, ok := f.errFor[env.TeamID]; ok {
		return err
	}
	return nil
}

func (f *fakeProcessor) processed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.seen))
	copy(out, f.seen)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSupervisorProcessesQueuedEvents(t *testing.T) {
	q := queue.New()
	proc := &fakeProcessor{}
	sup := &Supervisor{Queue: q, Proc: proc}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	for _, team := range []string{"T1", "T2", "T3"} {
		q.Enqueue(slack.Envelope{TeamID: team})
	}
	waitFor(t, func() bool { return len(proc.processed()) == 3 })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop after cancellation")
	}
}

func TestSupervisorIsolatesFailures(t *testing.T) {
	q := queue.New()
	proc := &fakeProcessor{errFor: map[string]error{"BAD": errors.New("boom")}}
	sup := &Supervisor{Queue: q, Proc: proc}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	q.Enqueue(slack.Envelope{TeamID: "T1"})
	q.Enqueue(slack.Envelope{TeamID: "BAD"})
	q.Enqueue(slack.Envelope{TeamID: "T2"})

	// The failing event must not prevent the others from completing.
	waitFor(t, func() bool { return len(proc.processed()) == 3 })
}

func TestSupervisorDrainsInFlightOnShutdown(t *testing.T) {
	q := queue.New()
	proc := &fakeProcessor{
		block:   make(chan struct{}),
		started: make(chan string, 1),
	}
	sup := &Supervisor{Queue: q, Proc: proc}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	q.Enqueue(slack.Envelope{TeamID: "T1"})
	<-proc.started // the task is in flight

	cancel()
	select {
	case <-done:
		t.Fatal("supervisor stopped with a task still in flight")
	case <-time.After(50 * time.Millisecond):
	}
	if got := sup.InFlight(); got != 1 {
		t.Fatalf("expected 1 in-flight task, got %d", got)
	}

	close(proc.block)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop after the task finished")
	}
	if got := proc.processed(); len(got) != 1 || got[0] != "T1" {
		t.Fatalf("expected T1 to finish, got %v", got)
	}
}

func TestSupervisorAbandonsQueuedItemsOnShutdown(t *testing.T) {
	q := queue.New()
	proc := &fakeProcessor{}
	sup := &Supervisor{Queue: q, Proc: proc}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}

	// Enqueued after shutdown: stays queued, never processed.
	q.Enqueue(slack.Envelope{TeamID: "T1"})
	if got := proc.processed(); len(got) != 0 {
		t.Fatalf("expected no processing after shutdown, got %v", got)
	}
	if q.Len() != 1 {
		t.Fatalf("expected the item to remain queued, got backlog %d", q.Len())
	}
}
