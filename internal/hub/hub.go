// Package hub fans topic snapshots out to connected websocket subscribers.
//
// A Listener turns bus notifications into fresh snapshots and hands them to the Hub, which
// broadcasts each one to the audiences subscribed to that topic. Every connected client is a
// Session holding an Outbox in its audience's Registry.
package hub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rushapp/rushcast/internal/snapshot"
)

const (
	AudienceVoter = "voter"
	AudienceAdmin = "admin"
)

// Audience is one class of subscriber with its own registry and topic set.
type Audience struct {
	Name     string
	Topics   []snapshot.Topic
	Registry *Registry

	nextID atomic.Uint64
}

func newAudience(name string, topics ...snapshot.Topic) *Audience {
	return &Audience{Name: name, Topics: topics, Registry: NewRegistry()}
}

// AssignID returns requested when set, otherwise a process-unique id for this audience.
func (a *Audience) AssignID(requested string) string {
	if requested != "" {
		return requested
	}
	return fmt.Sprintf("%s-%d", a.Name, a.nextID.Add(1))
}

func (a *Audience) wants(t snapshot.Topic) bool {
	for _, x := range a.Topics {
		if x == t {
			return true
		}
	}
	return false
}

// MinQueueSize leaves room for one initial snapshot per topic plus one broadcast per topic
// arriving while a new session primes.
const MinQueueSize = 2 * snapshot.NumTopics

type Options struct {
	QueueSize    int
	WriteTimeout time.Duration
	// PingInterval enables heartbeat eviction when positive: a subscriber that sends no pong
	// within two intervals is disconnected.
	PingInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.QueueSize < MinQueueSize {
		o.QueueSize = MinQueueSize
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PingInterval < 0 {
		o.PingInterval = 0
	}
	return o
}

type Hub struct {
	table     *snapshot.Table
	opts      Options
	log       *slog.Logger
	stats     *Stats
	audiences map[string]*Audience

	// topicMu serializes fetch-then-enqueue per topic between the listener and joining
	// sessions, so a join never queues a snapshot older than one already broadcast to it.
	topicMu map[snapshot.Topic]*sync.Mutex

	closed atomic.Bool
}

func New(table *snapshot.Table, opts Options, log *slog.Logger) *Hub {
	h := &Hub{
		table: table,
		opts:  opts.withDefaults(),
		log:   log.With("component", "hub"),
		stats: newStats(),
		audiences: map[string]*Audience{
			AudienceVoter: newAudience(AudienceVoter, snapshot.Rushee, snapshot.Question),
			AudienceAdmin: newAudience(AudienceAdmin, snapshot.Votes, snapshot.Rushee, snapshot.Question),
		},
		topicMu: make(map[snapshot.Topic]*sync.Mutex),
	}
	for _, t := range snapshot.All() {
		h.topicMu[t] = &sync.Mutex{}
	}
	return h
}

func (h *Hub) Audience(name string) (*Audience, bool) {
	a, ok := h.audiences[name]
	return a, ok
}

// Refresh fetches the current snapshot for t and broadcasts it to every audience that
// subscribes to t. Fetch and encode failures are logged and counted, never returned.
func (h *Hub) Refresh(ctx context.Context, t snapshot.Topic) {
	h.refresh(ctx, t, func(ctx context.Context) (snapshot.Envelope, error) {
		return h.table.Fetch(ctx, t)
	})
}

func (h *Hub) refresh(ctx context.Context, t snapshot.Topic, fetch snapshot.FetchFunc) {
	mu := h.topicMu[t]
	mu.Lock()
	defer mu.Unlock()

	msg, err := encode(ctx, fetch)
	if err != nil {
		h.stats.fetchError(t)
		h.log.Error("snapshot fetch failed", "topic", t.Channel(), "error", err)
		return
	}
	h.broadcast(t, msg)
}

func (h *Hub) broadcast(t snapshot.Topic, msg []byte) {
	for _, a := range h.audiences {
		if !a.wants(t) {
			continue
		}
		res := Broadcast(a.Registry, msg)
		h.stats.broadcast(t, res)
		if len(res.Pruned) > 0 {
			h.log.Info("pruned subscribers", "topic", t.Channel(), "audience", a.Name, "ids", res.Pruned)
		}
		h.log.Debug("broadcast", "topic", t.Channel(), "audience", a.Name, "delivered", res.Delivered, "failed", res.Failed)
	}
}

// prime enqueues the current snapshot of each of a's topics into out. It holds the topic
// lock so ordering against a concurrent Refresh is preserved.
func (h *Hub) prime(ctx context.Context, a *Audience, out *Outbox, log *slog.Logger) error {
	for _, t := range a.Topics {
		if err := h.primeTopic(ctx, t, out, log); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hub) primeTopic(ctx context.Context, t snapshot.Topic, out *Outbox, log *slog.Logger) error {
	mu := h.topicMu[t]
	mu.Lock()
	defer mu.Unlock()

	msg, err := encode(ctx, func(ctx context.Context) (snapshot.Envelope, error) {
		return h.table.Fetch(ctx, t)
	})
	if err != nil {
		h.stats.fetchError(t)
		log.Warn("initial snapshot unavailable", "topic", t.Channel(), "error", err)
		return nil
	}
	if err := out.TrySend(msg); err != nil {
		return fmt.Errorf("queue initial %s snapshot: %w", t.Channel(), err)
	}
	return nil
}

func encode(ctx context.Context, fetch snapshot.FetchFunc) ([]byte, error) {
	env, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.Encode(env)
}

func (h *Hub) Stats() StatsSnapshot {
	subs := make(map[string]int, len(h.audiences))
	for name, a := range h.audiences {
		subs[name] = a.Registry.Len()
	}
	return StatsSnapshot{Subscribers: subs, Topics: h.stats.topicSnapshot()}
}

// Close retires every connected subscriber and turns away sessions that start afterwards.
// Retired sessions close their sockets and deregister on their own.
func (h *Hub) Close() {
	h.closed.Store(true)
	for _, a := range h.audiences {
		for _, e := range a.Registry.Snapshot() {
			e.Sender.Close()
		}
	}
}
