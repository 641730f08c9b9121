package hub

import (
	"sync/atomic"

	"github.com/rushapp/rushcast/internal/snapshot"
)

type topicCounters struct {
	notifications atomic.Int64
	fetchErrors   atomic.Int64
	broadcasts    atomic.Int64
	delivered     atomic.Int64
	failed        atomic.Int64
}

// Stats holds process-lifetime counters per topic. Safe for concurrent use.
type Stats struct {
	topics map[snapshot.Topic]*topicCounters
}

func newStats() *Stats {
	s := &Stats{topics: make(map[snapshot.Topic]*topicCounters)}
	for _, t := range snapshot.All() {
		s.topics[t] = &topicCounters{}
	}
	return s
}

func (s *Stats) notification(t snapshot.Topic) {
	if c, ok := s.topics[t]; ok {
		c.notifications.Add(1)
	}
}

func (s *Stats) fetchError(t snapshot.Topic) {
	if c, ok := s.topics[t]; ok {
		c.fetchErrors.Add(1)
	}
}

func (s *Stats) broadcast(t snapshot.Topic, r Result) {
	c, ok := s.topics[t]
	if !ok {
		return
	}
	c.broadcasts.Add(1)
	c.delivered.Add(int64(r.Delivered))
	c.failed.Add(int64(r.Failed))
}

type TopicStats struct {
	Notifications int64 `json:"notifications"`
	FetchErrors   int64 `json:"fetch_errors"`
	Broadcasts    int64 `json:"broadcasts"`
	Delivered     int64 `json:"delivered"`
	Failed        int64 `json:"failed"`
}

type StatsSnapshot struct {
	Subscribers map[string]int        `json:"subscribers"`
	Topics      map[string]TopicStats `json:"topics"`
}

func (s *Stats) topicSnapshot() map[string]TopicStats {
	out := make(map[string]TopicStats, len(s.topics))
	for t, c := range s.topics {
		out[t.Channel()] = TopicStats{
			Notifications: c.notifications.Load(),
			FetchErrors:   c.fetchErrors.Load(),
			Broadcasts:    c.broadcasts.Load(),
			Delivered:     c.delivered.Load(),
			Failed:        c.failed.Load(),
		}
	}
	return out
}
