package bus

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryDeliversSubscribedTopicsInOrder(t *testing.T) {
	b := NewMemory()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx, "votes", "rushee")
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if err := b.Publish(ctx, "votes", fmt.Sprint(i)); err != nil {
			t.Fatal(err)
		}
	}
	_ = b.Publish(ctx, "question", "ignored")
	_ = b.Publish(ctx, "rushee", "r")

	for i := 0; i < 5; i++ {
		select {
		case n := <-ch:
			if n.Topic != "votes" || n.Payload != fmt.Sprint(i) {
				t.Fatalf("notification %d: got %+v", i, n)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("timeout waiting for notification %d", i)
		}
	}
	select {
	case n := <-ch:
		if n.Topic != "rushee" {
			t.Fatalf("expected rushee after votes, got %+v", n)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for rushee notification")
	}
}

func TestMemorySubscriptionClosesOnCancel(t *testing.T) {
	b := NewMemory()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx, "votes")
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription channel was not closed")
	}

	// Publishing after the subscriber left must not block.
	if err := b.Publish(context.Background(), "votes", "x"); err != nil {
		t.Fatal(err)
	}
}

func TestMemoryPublishAfterClose(t *testing.T) {
	b := NewMemory()
	_ = b.Close()
	if err := b.Publish(context.Background(), "votes", "x"); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := b.Subscribe(context.Background(), "votes"); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestBackoffCapped(t *testing.T) {
	b := Backoff{BaseDelay: time.Second, MaxDelay: 4 * time.Second, Factor: 2}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := b.NextDelay(i); got != w {
			t.Errorf("NextDelay(%d) = %v, want %v", i, got, w)
		}
	}
}
