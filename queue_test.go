package eventgroup

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue(4)
	ctx := context.Background()

	g1, g2 := NewEventGroup(nil), NewEventGroup(nil)
	if err := q.Put(ctx, g1); err != nil {
		t.Fatal(err)
	}
	if err := q.Put(ctx, g2); err != nil {
		t.Fatal(err)
	}
	if q.Len() != 2 {
		t.Fatalf("expected 2 queued groups, got: %d", q.Len())
	}

	for i, want := range []*EventGroup{g1, g2} {
		got, err := q.Pull(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("group %d pulled out of order", i)
		}
	}
}

func TestQueue_PutBlocksWhenFull(t *testing.T) {
	q := NewQueue(1)
	if err := q.Put(context.Background(), NewEventGroup(nil)); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Put(ctx, NewEventGroup(nil)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got: %v", err)
	}
}

func TestQueue_PullBlocksWhenEmpty(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := q.Pull(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got: %v", err)
	}
}

func TestQueue_ShutdownDrains(t *testing.T) {
	q := NewQueue(2)
	ctx := context.Background()
	g := NewEventGroup(nil)
	if err := q.Put(ctx, g); err != nil {
		t.Fatal(err)
	}

	if err := q.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if err := q.Shutdown(ctx); err != nil {
		t.Fatalf("expected repeated Shutdown to be a no-op, got: %v", err)
	}

	if err := q.Put(ctx, NewEventGroup(nil)); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got: %v", err)
	}

	got, err := q.Pull(ctx)
	if err != nil || got != g {
		t.Fatalf("expected the queued group after Shutdown, got: %v, %v", got, err)
	}
	if _, err := q.Pull(ctx); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed once drained, got: %v", err)
	}
}

func TestQueue_ShutdownUnblocksPull(t *testing.T) {
	q := NewQueue(0)
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Pull(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	q.Shutdown(context.Background())

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrQueueClosed) {
			t.Fatalf("expected ErrQueueClosed, got: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Pull did not return after Shutdown")
	}
}

func TestQueue_Forward(t *testing.T) {
	q := NewQueue(8)
	sink := &testSink{}
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- q.Forward(ctx, sink) }()

	for i := 0; i < 5; i++ {
		if err := q.Put(ctx, NewEventGroup(nil)); err != nil {
			t.Fatal(err)
		}
	}
	q.Shutdown(ctx)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected Forward error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Forward did not return after Shutdown")
	}
	if n := len(sink.received()); n != 5 {
		t.Fatalf("expected 5 forwarded groups, got: %d", n)
	}
}

func TestQueue_NegativeDepth(t *testing.T) {
	q := NewQueue(-3)
	if cap(q.ch) != 0 {
		t.Fatalf("expected unbuffered queue, got cap: %d", cap(q.ch))
	}
}
