package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"birdbot/internal/queue"
	"birdbot/internal/slack"
	"birdbot/internal/utils"
)

// Processor handles one dequeued event.
type Processor interface {
	Process(ctx context.Context, env slack.Envelope) error
}

// Supervisor drains the event queue, fanning out one goroutine per event.
// Tasks run concurrently with each other and with the dequeue loop; a failure
// in one task never disturbs the others.
type Supervisor struct {
	Queue *queue.Queue
	Proc  Processor

	inFlight atomic.Int64
}

// Run blocks until ctx is cancelled, then waits for every in-flight task to
// finish before returning. Items still queued at shutdown are abandoned.
func (s *Supervisor) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for {
		item, err := s.Queue.Dequeue(ctx)
		if err != nil {
			// Cancellation is the only way Dequeue fails.
			break
		}

		wg.Add(1)
		s.inFlight.Add(1)
		go func(item queue.Item) {
			defer wg.Done()
			defer s.inFlight.Add(-1)
			s.process(ctx, item)
		}(item)
	}

	utils.Info("worker draining", "in_flight", s.inFlight.Load(), "abandoned", s.Queue.Len())
	wg.Wait()
	utils.Info("worker stopped")
}

// InFlight reports the number of events currently being processed.
func (s *Supervisor) InFlight() int64 {
	return s.inFlight.Load()
}

func (s *Supervisor) process(ctx context.Context, item queue.Item) {
	defer func() {
		if r := recover(); r != nil {
			utils.Error("event processing panic", "event_id", item.ID, "panic", r)
		}
	}()

	err := s.Proc.Process(ctx, item.Envelope)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The process is stopping; not an error.
	default:
		utils.Error("event processing failed",
			"event_id", item.ID,
			"team_id", item.Envelope.TeamID,
			"event_type", item.Envelope.Event.Type,
			"err", err,
		)
	}
}
