package prefs

import (
	"context"
	"sync"
)

// Memory implements Store with a mutex-guarded map. Entries live for the
// lifetime of the process.
type Memory struct {
	mu      sync.RWMutex
	entries map[Key]string
}

// NewMemory creates an empty in-memory preference store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[Key]string),
	}
}

func (m *Memory) Get(_ context.Context, key Key) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *Memory) Set(_ context.Context, key Key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}
