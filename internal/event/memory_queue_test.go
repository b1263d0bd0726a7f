package event

import (
	"context"
	"testing"
	"time"
)

func TestMemoryQueueRoundTrip(t *testing.T) {
	q := NewMemoryQueue(4)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Event, 1)
	go func() {
		_ = q.Consume(ctx, 1, func(_ context.Context, e Event) error {
			received <- e
			return nil
		})
	}()

	if err := q.Publish(ctx, Event{Type: TypeIntentExecuted, Owner: "alice", Checksum: "abcd"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case e := <-received:
		if e.Type != TypeIntentExecuted || e.Owner != "alice" {
			t.Fatalf("unexpected event: %+v", e)
		}
		if e.Timestamp == 0 {
			t.Fatal("event should be stamped on publish")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMemoryQueuePublishAfterClose(t *testing.T) {
	q := NewMemoryQueue(1)
	if err := q.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := q.Publish(context.Background(), Event{Type: TypeAliasSaved}); err == nil {
		t.Fatal("expected error after close")
	}
}
