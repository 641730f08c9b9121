package hub

import (
	"context"
	"testing"

	"github.com/rushapp/rushcast/internal/logging"
	"github.com/rushapp/rushcast/internal/snapshot"
	"github.com/rushapp/rushcast/internal/store"
)

func newTestHub(opts Options) *Hub {
	table := snapshot.NewTable(snapshot.NewReader(store.NewMemory(), logging.Discard()))
	return New(table, opts, logging.Discard())
}

func TestQueueSizeRaisedToMinimum(t *testing.T) {
	h := newTestHub(Options{QueueSize: 3})
	if h.opts.QueueSize != MinQueueSize {
		t.Fatalf("expected queue size %d, got %d", MinQueueSize, h.opts.QueueSize)
	}
	if h := newTestHub(Options{QueueSize: 100}); h.opts.QueueSize != 100 {
		t.Fatalf("larger queue sizes must be kept, got %d", h.opts.QueueSize)
	}
}

func TestPrimeAfterBroadcastsOnEveryTopic(t *testing.T) {
	h := newTestHub(Options{QueueSize: 1})
	admins, _ := h.Audience(AudienceAdmin)
	ctx := context.Background()

	// Registered but not yet drained: one broadcast per topic lands before priming.
	out := NewOutbox(h.opts.QueueSize)
	admins.Registry.Insert("joining", out)
	for _, topic := range snapshot.All() {
		h.Refresh(ctx, topic)
	}

	if err := h.prime(ctx, admins, out, h.log); err != nil {
		t.Fatalf("prime failed with a full queue: %v", err)
	}
	if _, ok := admins.Registry.Get("joining"); !ok {
		t.Fatal("joining subscriber was evicted")
	}
	if n := drain(out); n != 2*snapshot.NumTopics {
		t.Fatalf("expected %d queued envelopes, got %d", 2*snapshot.NumTopics, n)
	}
}
