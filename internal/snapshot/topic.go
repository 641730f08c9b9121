// Package snapshot maps bus topics to the state they announce and shapes that state into
// the envelopes pushed to subscribers.
package snapshot

import (
	"context"
	"fmt"
)

type Topic int

const (
	Votes Topic = iota
	Rushee
	Question

	numTopics
)

// NumTopics is the number of known topics.
const NumTopics = int(numTopics)

var topicInfo = [numTopics]struct {
	channel  string
	envelope string
}{
	Votes:    {channel: "vote_channel", envelope: "vote_update"},
	Rushee:   {channel: "rushee", envelope: "rushee_update"},
	Question: {channel: "question", envelope: "question_update"},
}

// Channel is the bus topic name.
func (t Topic) Channel() string {
	if t < 0 || t >= numTopics {
		return fmt.Sprintf("topic(%d)", int(t))
	}
	return topicInfo[t].channel
}

func (t Topic) String() string { return t.Channel() }

// EnvelopeType is the "type" tag of envelopes built for t.
func (t Topic) EnvelopeType() string {
	if t < 0 || t >= numTopics {
		return ""
	}
	return topicInfo[t].envelope
}

func All() []Topic {
	out := make([]Topic, 0, numTopics)
	for t := Topic(0); t < numTopics; t++ {
		out = append(out, t)
	}
	return out
}

func Channels(topics []Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.Channel()
	}
	return out
}

// ParseChannel resolves a bus topic name.
func ParseChannel(name string) (Topic, bool) {
	for t := Topic(0); t < numTopics; t++ {
		if topicInfo[t].channel == name {
			return t, true
		}
	}
	return 0, false
}

// FetchFunc reads the current state for one topic, already shaped as its envelope.
type FetchFunc func(ctx context.Context) (Envelope, error)

// Table binds every topic to its fetch function. It is built once at startup.
type Table struct {
	fetch [numTopics]FetchFunc
}

func NewTable(r *Reader) *Table {
	return &Table{fetch: [numTopics]FetchFunc{
		Votes:    func(ctx context.Context) (Envelope, error) { return r.Votes(ctx) },
		Rushee:   func(ctx context.Context) (Envelope, error) { return r.Rushee(ctx) },
		Question: func(ctx context.Context) (Envelope, error) { return r.Question(ctx) },
	}}
}

// Lookup resolves a bus topic name to its topic and fetch function.
func (t *Table) Lookup(channel string) (Topic, FetchFunc, bool) {
	topic, ok := ParseChannel(channel)
	if !ok || t.fetch[topic] == nil {
		return 0, nil, false
	}
	return topic, t.fetch[topic], true
}

func (t *Table) Fetch(ctx context.Context, topic Topic) (Envelope, error) {
	if topic < 0 || topic >= numTopics || t.fetch[topic] == nil {
		return nil, fmt.Errorf("no snapshot source for %s", topic)
	}
	return t.fetch[topic](ctx)
}
