package storage

import (
	"context"
	"sync"
)

// Memory implements Storage using an in-memory map. Contents are lost on restart.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemory creates an empty in-memory Storage.
func NewMemory() *Memory {
	return &Memory{
		items: make(map[string][]byte),
	}
}

// GetItem returns a copy of the value stored under key.
func (m *Memory) GetItem(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// SetItem stores a copy of value under key.
func (m *Memory) SetItem(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = append([]byte(nil), value...)
	return nil
}
