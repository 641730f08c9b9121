package hub

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistryInsertOverwrites(t *testing.T) {
	r := NewRegistry()
	a, b := NewOutbox(1), NewOutbox(1)

	if _, replaced := r.Insert("x", a); replaced {
		t.Fatal("first insert should not replace")
	}
	prev, replaced := r.Insert("x", b)
	if !replaced || prev != Sender(a) {
		t.Fatalf("expected a to be replaced, got %v %v", prev, replaced)
	}
	if got, _ := r.Get("x"); got != Sender(b) {
		t.Fatal("last writer should win")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", r.Len())
	}
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Insert("x", NewOutbox(1))

	r.Remove("x")
	r.Remove("x")
	r.Remove("never-there")

	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}

func TestRegistryRemoveIfKeepsNewerEntry(t *testing.T) {
	r := NewRegistry()
	old, cur := NewOutbox(1), NewOutbox(1)
	r.Insert("x", old)
	r.Insert("x", cur)

	if r.RemoveIf("x", old) {
		t.Fatal("stale sender must not remove the current entry")
	}
	if _, ok := r.Get("x"); !ok {
		t.Fatal("current entry was removed")
	}
	if !r.RemoveIf("x", cur) {
		t.Fatal("current sender should remove its own entry")
	}
	if r.RemoveIf("x", cur) {
		t.Fatal("second removal should be a no-op")
	}
}

func TestRegistrySnapshotUnderConcurrency(t *testing.T) {
	r := NewRegistry()
	const writers = 8
	const perWriter = 200

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				r.Insert(id, NewOutbox(1))
				if i%2 == 1 {
					r.Remove(id)
				}
			}
		}(w)
	}

	snapDone := make(chan struct{})
	go func() {
		defer close(snapDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			for _, e := range r.Snapshot() {
				if e.Sender == nil || e.ID == "" {
					t.Error("snapshot returned an empty entry")
					return
				}
			}
		}
	}()

	wg.Wait()
	close(stop)
	<-snapDone

	if got, want := r.Len(), writers*perWriter/2; got != want {
		t.Fatalf("expected %d entries, got %d", want, got)
	}
	if got := len(r.Snapshot()); got != r.Len() {
		t.Fatalf("snapshot has %d entries, registry %d", got, r.Len())
	}
}
