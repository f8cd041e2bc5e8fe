// Package store keeps serialized cash book snapshots in durable key/value
// slots. A slot is overwritten whole; there are no partial updates.
package store

import (
	"context"
	"errors"
	"sync"
)

// ErrSlotNotFound is returned when a slot has never been written
var ErrSlotNotFound = errors.New("slot not found")

// SlotStore is a durable key/value register
type SlotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// MemorySlotStore keeps slots in process memory
type MemorySlotStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemorySlotStore() *MemorySlotStore {
	return &MemorySlotStore{slots: make(map[string][]byte)}
}

func (m *MemorySlotStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.slots[key]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *MemorySlotStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.slots[key] = append([]byte(nil), value...)
	return nil
}
