package hub

import (
	"hash/fnv"
	"sync"
)

// Sender is the dispatch side of a subscriber's outbound queue.
type Sender interface {
	// TrySend enqueues msg without blocking.
	TrySend(msg []byte) error
	// Close marks the queue dead; the owning session tears down once it notices.
	Close()
}

type Entry struct {
	ID     string
	Sender Sender
}

const registryShards = 16

// Registry maps subscriber ids to their senders. Entries are spread across independently
// locked shards so inserts and removes from different sessions rarely contend.
type Registry struct {
	shards [registryShards]*registryShard
}

type registryShard struct {
	mu sync.RWMutex
	m  map[string]Sender
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &registryShard{m: make(map[string]Sender)}
	}
	return r
}

func (r *Registry) shard(id string) *registryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return r.shards[h.Sum32()%registryShards]
}

// Insert registers s under id, replacing any existing entry. The replaced sender, if any,
// is returned so the caller can retire it.
func (r *Registry) Insert(id string, s Sender) (prev Sender, replaced bool) {
	sh := r.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	prev, replaced = sh.m[id]
	sh.m[id] = s
	return prev, replaced
}

// Remove deletes id. Removing an absent id is a no-op.
func (r *Registry) Remove(id string) {
	sh := r.shard(id)
	sh.mu.Lock()
	delete(sh.m, id)
	sh.mu.Unlock()
}

// RemoveIf deletes id only while it still maps to s, so a retiring session cannot evict a
// newer session that reused its id. It reports whether an entry was removed.
func (r *Registry) RemoveIf(id string, s Sender) bool {
	sh := r.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if cur, ok := sh.m[id]; ok && cur == s {
		delete(sh.m, id)
		return true
	}
	return false
}

func (r *Registry) Get(id string) (Sender, bool) {
	sh := r.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.m[id]
	return s, ok
}

// Snapshot copies the current entries. Each shard is read under its own lock, so the
// result may miss inserts or include removals that race with the call.
func (r *Registry) Snapshot() []Entry {
	out := make([]Entry, 0, r.Len())
	for _, sh := range r.shards {
		sh.mu.RLock()
		for id, s := range sh.m {
			out = append(out, Entry{ID: id, Sender: s})
		}
		sh.mu.RUnlock()
	}
	return out
}

func (r *Registry) Len() int {
	n := 0
	for _, sh := range r.shards {
		sh.mu.RLock()
		n += len(sh.m)
		sh.mu.RUnlock()
	}
	return n
}
