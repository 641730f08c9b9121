package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store used by tests and the memory driver.
type Memory struct {
	mu         sync.RWMutex
	votes      map[string]string
	order      []string
	ineligible map[string]struct{}
	state      map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		votes:      make(map[string]string),
		ineligible: make(map[string]struct{}),
		state:      make(map[string]string),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Tally(_ context.Context) ([]VoteEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]VoteEntry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, VoteEntry{VoterID: id, Record: m.votes[id]})
	}
	return out, nil
}

func (m *Memory) HasVoted(_ context.Context, voterID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.votes[voterID]
	return ok, nil
}

func (m *Memory) RecordVote(_ context.Context, voterID, record string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.votes[voterID]; ok {
		return false, nil
	}
	m.votes[voterID] = record
	m.order = append(m.order, voterID)
	return true, nil
}

func (m *Memory) ClearVotes(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes = make(map[string]string)
	m.order = nil
	return nil
}

func (m *Memory) IsIneligible(_ context.Context, voterID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ineligible[voterID]
	return ok, nil
}

func (m *Memory) SetIneligible(_ context.Context, voterID string, ineligible bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ineligible {
		m.ineligible[voterID] = struct{}{}
	} else {
		delete(m.ineligible, voterID)
	}
	return nil
}

func (m *Memory) ListIneligible(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.ineligible))
	for id := range m.ineligible {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.state[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, key)
	return nil
}

// PutRawVote stores record verbatim, bypassing the one-vote check. It exists to seed
// corrupt or legacy rows.
func (m *Memory) PutRawVote(voterID, record string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.votes[voterID]; !ok {
		m.order = append(m.order, voterID)
	}
	m.votes[voterID] = record
}
