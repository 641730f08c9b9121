package bus

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("bus closed")

// Memory is an in-process bus. Publish blocks until every matching subscriber has taken the
// notification (or gone away), which keeps per-topic order without dropping.
type Memory struct {
	mu     sync.RWMutex
	nextID int64
	subs   map[int64]*memSub
	closed bool
	done   chan struct{}
}

type memSub struct {
	topics map[string]struct{}
	ch     chan Notification
	done   <-chan struct{}
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[int64]*memSub), done: make(chan struct{})}
}

var _ Bus = (*Memory)(nil)

func (m *Memory) Publish(ctx context.Context, topic, payload string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	n := Notification{Topic: topic, Payload: payload}
	for _, s := range m.subs {
		if _, ok := s.topics[topic]; !ok {
			continue
		}
		select {
		case s.ch <- n:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, topics ...string) (<-chan Notification, error) {
	s := &memSub{
		topics: make(map[string]struct{}, len(topics)),
		ch:     make(chan Notification, 64),
		done:   ctx.Done(),
	}
	for _, t := range topics {
		s.topics[t] = struct{}{}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	id := m.nextID
	m.nextID++
	m.subs[id] = s
	m.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-m.done:
		}
		m.mu.Lock()
		delete(m.subs, id)
		close(s.ch)
		m.mu.Unlock()
	}()
	return s.ch, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// Subscribers reports the number of live subscriptions.
func (m *Memory) Subscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}
