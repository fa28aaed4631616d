package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/LaythSaleem/student-attendance-system-sub003/internal/queue"
)

// TestInMemory_PublishConsume verifies messages flow through in order.
func TestInMemory_PublishConsume(t *testing.T) {
	q := queue.NewInMemory(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume init failed: %v", err)
	}

	want := queue.Message{Type: "attendance", RecordID: "rec-1"}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case got := <-msgs:
		if got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

// TestInMemory_ConsumeStopsOnCancel verifies the consumer channel
// closes when the context is cancelled.
func TestInMemory_ConsumeStopsOnCancel(t *testing.T) {
	q := queue.NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())

	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume init failed: %v", err)
	}
	cancel()

	select {
	case _, open := <-msgs:
		if open {
			t.Error("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

// TestInMemory_PublishFullBufferDoesNotBlock verifies a full queue
// fails the publish immediately instead of stalling the caller.
func TestInMemory_PublishFullBufferDoesNotBlock(t *testing.T) {
	q := queue.NewInMemory(1)
	ctx := context.Background()

	if err := q.Publish(ctx, queue.Message{Type: "attendance", RecordID: "a"}); err != nil {
		t.Fatalf("first publish failed: %v", err)
	}

	start := time.Now()
	err := q.Publish(ctx, queue.Message{Type: "attendance", RecordID: "b"})
	if err == nil {
		t.Error("expected error on full buffer")
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("publish on full buffer took %s, expected immediate return", elapsed)
	}
}
