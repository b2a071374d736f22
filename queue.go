package eventgroup

import (
	"context"
	"errors"
	"sync"
)

// Sink is a pipeline stage that takes ownership of the groups put into it.
// After Put returns nil the caller must not touch the group again.
type Sink interface {
	Put(ctx context.Context, g *EventGroup) error
	Shutdown(ctx context.Context) error
}

// Queue is a bounded FIFO of event groups between two pipeline stages. Put
// hands a group over to whichever stage Pulls it next; the queue never
// inspects or copies the group.
type Queue struct {
	ch       chan *EventGroup
	done     chan struct{}
	shutdown sync.Once
}

// compile-time check for Sink conformance
var _ Sink = (*Queue)(nil)

// NewQueue creates a queue holding up to depth groups. A depth < 1 creates an
// unbuffered queue, where Put blocks until a consumer Pulls.
func NewQueue(depth int) *Queue {
	if depth < 0 {
		depth = 0
	}
	return &Queue{
		ch:   make(chan *EventGroup, depth),
		done: make(chan struct{}),
	}
}

// Put enqueues g, blocking while the queue is full. It returns ErrQueueClosed
// after Shutdown, or the context error if ctx ends first.
func (q *Queue) Put(ctx context.Context, g *EventGroup) error {
	// fail fast once closed, even if there is room
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.ch <- g:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pull dequeues the oldest group, blocking while the queue is empty. After
// Shutdown it keeps returning the remaining groups, then ErrQueueClosed.
func (q *Queue) Pull(ctx context.Context) (*EventGroup, error) {
	select {
	case g := <-q.ch:
		return g, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		select {
		case g := <-q.ch:
			return g, nil
		default:
			return nil, ErrQueueClosed
		}
	}
}

// Len returns the number of queued groups.
func (q *Queue) Len() int { return len(q.ch) }

// Shutdown stops the queue from accepting groups. Groups already queued can
// still be pulled. It is safe to call more than once.
func (q *Queue) Shutdown(context.Context) error {
	q.shutdown.Do(func() { close(q.done) })
	return nil
}

// Forward pulls groups and puts them into s until the queue is shut down and
// drained, or ctx ends. It returns nil once the queue is drained.
func (q *Queue) Forward(ctx context.Context, s Sink) error {
	for {
		g, err := q.Pull(ctx)
		if errors.Is(err, ErrQueueClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.Put(ctx, g); err != nil {
			return err
		}
	}
}
