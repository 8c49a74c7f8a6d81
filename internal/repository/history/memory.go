package history

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps history lists in process memory. Used by tests and the
// CLI when no database is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	lists map[string][]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lists: make(map[string][]string)}
}

// Load returns a copy of the owner's list.
func (m *MemoryStore) Load(_ context.Context, owner string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := slices.Clone(m.lists[owner])
	if entries == nil {
		entries = []string{}
	}
	return entries, nil
}

// Save replaces the owner's list.
func (m *MemoryStore) Save(_ context.Context, owner string, entries []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[owner] = slices.Clone(entries)
	return nil
}

// Delete removes the owner's list.
func (m *MemoryStore) Delete(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, owner)
	return nil
}
