package storage

import (
	"context"
	"sync"
	"time"

	"github.com/atxevents/atx-events/internal/event"
)

// Memory is an in-memory store keyed by the dedup key. It backs dry runs
// and tests; nothing survives the process.
type Memory struct {
	mu     sync.Mutex
	keys   map[string]bool
	events []event.Event
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{keys: make(map[string]bool)}
}

func (m *Memory) Exists(_ context.Context, title string, start time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[event.Key(title, start)], nil
}

func (m *Memory) Insert(_ context.Context, evt event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[evt.Key()] = true
	m.events = append(m.events, evt)
	return nil
}

// Events returns the stored events in insertion order.
func (m *Memory) Events() []event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Event, len(m.events))
	copy(out, m.events)
	return out
}
