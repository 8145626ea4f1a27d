package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blockedby/finlog/internal/session"
)

// SessionKey is the key of the default session record. Browser sessions
// live under SessionKey + ":" + client id.
const SessionKey = "session"

// SessionRepository persists one session record as JSON. It implements
// session.Persister.
type SessionRepository struct {
	state *StateRepository
	key   string
}

// NewSessionRepository creates a repository for the default record.
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{state: NewStateRepository(db), key: SessionKey}
}

// ForClient returns a repository for the record of one browser client.
func (r *SessionRepository) ForClient(id string) *SessionRepository {
	return &SessionRepository{state: r.state, key: SessionKey + ":" + id}
}

// Key returns the state key the record is stored under.
func (r *SessionRepository) Key() string {
	return r.key
}

// Load returns the stored record, or session.ErrNoRecord.
func (r *SessionRepository) Load(ctx context.Context) (*session.Record, error) {
	raw, err := r.state.Get(ctx, r.key)
	if errors.Is(err, ErrNotFound) {
		return nil, session.ErrNoRecord
	}
	if err != nil {
		return nil, err
	}

	var rec session.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrCorruptRecord, err)
	}
	return &rec, nil
}

// Save replaces the stored record.
func (r *SessionRepository) Save(ctx context.Context, rec session.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	return r.state.Put(ctx, r.key, string(data))
}

// Clear removes the stored record.
func (r *SessionRepository) Clear(ctx context.Context) error {
	return r.state.Delete(ctx, r.key)
}
