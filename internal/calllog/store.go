package calllog

import (
	"context"
	"sync"
)

// AnyVersion makes Save overwrite the slot whatever its current version is
const AnyVersion int64 = -1

// SlotStore is the shared persisted slot holding the serialized log.
//
// Load returns nil data and version 0 when the slot does not exist yet.
// Save replaces the whole slot. With expected >= 0 it only succeeds if the
// slot is still at that version and returns ErrVersionConflict otherwise.
// On success it returns the new version.
type SlotStore interface {
	Load(ctx context.Context) (data []byte, version int64, err error)
	Save(ctx context.Context, data []byte, expected int64) (int64, error)
}

// MemoryStore is a SlotStore kept in process memory. Views sharing one
// MemoryStore behave like views sharing a persisted slot.
type MemoryStore struct {
	mu      sync.RWMutex
	data    []byte
	version int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) ([]byte, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.data == nil {
		return nil, m.version, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, m.version, nil
}

func (m *MemoryStore) Save(_ context.Context, data []byte, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if expected >= 0 && expected != m.version {
		return m.version, ErrVersionConflict
	}
	m.data = append([]byte(nil), data...)
	m.version++
	return m.version, nil
}
