// Package session holds the client session: the bearer token, the signed-in
// user and how the session was obtained. A Store is the only legal way to
// mutate those fields.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/blockedby/finlog/internal/logger"
	"github.com/blockedby/finlog/internal/models"
)

var (
	// ErrNoRecord is returned by a Persister that has nothing stored.
	ErrNoRecord = errors.New("no session record")

	// ErrCorruptRecord is returned by a Persister whose stored record can
	// never be decoded. Unlike other load errors it is not transient.
	ErrCorruptRecord = errors.New("corrupt session record")
)

const persistTimeout = 5 * time.Second

// State is an immutable snapshot of the session.
type State struct {
	Token           string          `json:"-"`
	User            *models.User    `json:"user,omitempty"`
	AuthType        models.AuthType `json:"authType,omitempty"`
	IsAuthenticated bool            `json:"isAuthenticated"`
}

// Record is the durable form of a session.
type Record struct {
	Token    string          `json:"token"`
	User     *models.User    `json:"user,omitempty"`
	AuthType models.AuthType `json:"authType,omitempty"`
}

// Persister mirrors the session to durable storage.
type Persister interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}

// Store is an injectable session container. The zero value is not usable;
// call NewStore.
type Store struct {
	// writeMu orders mutations together with their persistence so the
	// durable mirror never lags behind a newer write
	writeMu sync.Mutex

	mu    sync.RWMutex
	state State
	gen   uint64

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int

	persister Persister
	log       *logger.Logger
}

// NewStore creates an empty store. A nil persister keeps the session in
// memory only.
func NewStore(p Persister, log *logger.Logger) *Store {
	return &Store{
		persister: p,
		subs:      make(map[int]func(State)),
		log:       log.Component("session"),
	}
}

// GetState returns a copy of the current session.
func (s *Store) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Generation returns the current generation tag. It changes on every logout.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// SetUser replaces the user record.
func (s *Store) SetUser(user *models.User) {
	s.mutate(func(st *State) persistOp {
		st.User = user.Clone()
		if st.Token == "" {
			return persistNone
		}
		return persistSave
	})
}

// SetToken replaces the token. An empty token purges durable storage.
func (s *Store) SetToken(token string) {
	s.mutate(func(st *State) persistOp {
		st.Token = token
		if token == "" {
			st.AuthType = ""
			return persistClear
		}
		return persistSave
	})
}

// Commit stores a complete set of credentials in one update, but only when
// gen is still current. It reports whether the write was applied.
func (s *Store) Commit(gen uint64, token string, user *models.User, authType models.AuthType) bool {
	applied := false
	s.mutateIf(func(current uint64) bool { return current == gen }, func(st *State) persistOp {
		st.Token = token
		st.User = user.Clone()
		st.AuthType = authType
		applied = true
		return persistSave
	})
	return applied
}

// Logout clears the session, purges durable storage and invalidates every
// generation tag handed out so far.
func (s *Store) Logout() {
	s.mutate(func(st *State) persistOp {
		*st = State{}
		s.gen++
		return persistClear
	})
}

// Load reads the durable record without touching the in-memory session.
// It returns ErrNoRecord when nothing is stored or no persister is set.
func (s *Store) Load(ctx context.Context) (*Record, error) {
	if s.persister == nil {
		return nil, ErrNoRecord
	}
	rec, err := s.persister.Load(ctx)
	if err != nil {
		return nil, err
	}
	rec.User = rec.User.Clone()
	return rec, nil
}

// Adopt installs a record read by Load once the caller has accepted it. It
// applies only while gen is current and does not write the record back.
func (s *Store) Adopt(gen uint64, rec Record) bool {
	applied := false
	s.mutateIf(func(current uint64) bool { return current == gen }, func(st *State) persistOp {
		st.Token = rec.Token
		st.User = rec.User.Clone()
		st.AuthType = rec.AuthType
		applied = true
		return persistNone
	})
	return applied
}

// Subscribe registers fn to receive the new snapshot after every mutation.
// fn runs in the writer's goroutine. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

type persistOp int

const (
	persistNone persistOp = iota
	persistSave
	persistClear
)

func (s *Store) mutate(fn func(*State) persistOp) {
	s.mutateIf(nil, fn)
}

func (s *Store) mutateIf(cond func(gen uint64) bool, fn func(*State) persistOp) {
	s.writeMu.Lock()

	s.mu.Lock()
	if cond != nil && !cond(s.gen) {
		s.mu.Unlock()
		s.writeMu.Unlock()
		return
	}
	op := fn(&s.state)
	snap := s.snapshotLocked()
	rec := Record{Token: s.state.Token, User: s.state.User.Clone(), AuthType: s.state.AuthType}
	s.mu.Unlock()

	s.persist(op, rec)
	s.writeMu.Unlock()

	s.notify(snap)
}

func (s *Store) persist(op persistOp, rec Record) {
	if s.persister == nil || op == persistNone {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	var err error
	switch op {
	case persistSave:
		err = s.persister.Save(ctx, rec)
	case persistClear:
		err = s.persister.Clear(ctx)
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to mirror session to storage")
	}
}

func (s *Store) notify(snap State) {
	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) snapshotLocked() State {
	st := State{
		Token:    s.state.Token,
		User:     s.state.User.Clone(),
		AuthType: s.state.AuthType,
	}
	st.IsAuthenticated = st.Token != "" && st.User != nil && st.User.ID != ""
	return st
}
