// Package session persists the conversation projection between reloads.
package session

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"github.com/google/uuid"

	"github.com/wolfman30/triage-concierge/internal/chat"
)

// ErrNotFound indicates no entries are cached for the session.
var ErrNotFound = errors.New("session: not found")

// Store is the durable session cache.
type Store interface {
	Save(ctx context.Context, sessionID string, entries []chat.Entry) error
	Load(ctx context.Context, sessionID string) ([]chat.Entry, error)
	Delete(ctx context.Context, sessionID string) error
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// NewID returns a random session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether a client supplied id is acceptable.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// MemoryStore keeps entries in process. Used in tests and local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]chat.Entry
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]chat.Entry)}
}

func (s *MemoryStore) Save(ctx context.Context, sessionID string, entries []chat.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append([]chat.Entry(nil), entries...)
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) ([]chat.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]chat.Entry(nil), entries...), nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
