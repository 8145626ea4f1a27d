package session

import (
	"context"
	"sync"
)

// MemoryPersister keeps the record in process memory. Used when no durable
// storage is configured and in tests.
type MemoryPersister struct {
	mu  sync.Mutex
	rec *Record
}

// NewMemoryPersister creates an empty MemoryPersister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

// Load returns the stored record or ErrNoRecord.
func (m *MemoryPersister) Load(_ context.Context) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return nil, ErrNoRecord
	}
	rec := *m.rec
	rec.User = m.rec.User.Clone()
	return &rec, nil
}

// Save replaces the stored record.
func (m *MemoryPersister) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.User = rec.User.Clone()
	m.rec = &rec
	return nil
}

// Clear removes the stored record.
func (m *MemoryPersister) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	return nil
}
