// internal/store/memory.go
//
// In-memory implementation of the session Store interface.
// Active guessing sessions live here between HTTP requests; finished
// sessions are recorded by the history package and dropped from memory.
//
// Characteristics:
//   - Stores *guess.Session objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Update runs a mutation with the map write-locked, so two answers for
//     the same session are applied one after the other.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/robalobadob/guessage/internal/guess"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("session not found")

// Store defines the persistence interface for active sessions.
type Store interface {
	// Save persists or replaces a session.
	Save(ctx context.Context, s *guess.Session) error

	// Get returns a copy of the session with the given ID.
	Get(ctx context.Context, id string) (*guess.Session, error)

	// Update applies fn to the stored session and returns a copy of the
	// result. fn's error is returned as is; the session keeps whatever
	// changes fn made before failing.
	Update(ctx context.Context, id string, fn func(*guess.Session) error) (*guess.Session, error)

	// Delete removes a session. Missing IDs are not an error.
	Delete(ctx context.Context, id string) error

	// Len reports how many sessions are held.
	Len() int
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex              // guards sessions map
	sessions map[string]*guess.Session // keyed by Session.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*guess.Session)}
}

func (m *memory) Save(ctx context.Context, s *guess.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = clone(s)
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*guess.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return clone(s), nil
	}
	return nil, ErrNotFound
}

func (m *memory) Update(ctx context.Context, id string, fn func(*guess.Session) error) (*guess.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	err := fn(s)
	return clone(s), err
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// clone copies a session so callers never alias the stored value.
func clone(s *guess.Session) *guess.Session {
	c := *s
	c.Trail = slices.Clone(s.Trail)
	return &c
}
