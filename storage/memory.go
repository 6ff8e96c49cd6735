// In-memory session storage.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and ephemeral sessions

package storage

import (
	"context"
	"sync"
)

type memorySession struct {
	contextText string
	turns       []Turn
}

// InMemoryStorage implements ContextStorage using an in-memory map.
// Data is lost when the process terminates.
type InMemoryStorage struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
}

// NewInMemoryStorage creates a new in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		sessions: make(map[string]*memorySession),
	}
}

func (s *InMemoryStorage) session(sessionID string) *memorySession {
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &memorySession{}
		s.sessions[sessionID] = sess
	}
	return sess
}

// SaveContext stores the accumulated context text for a session.
func (s *InMemoryStorage) SaveContext(ctx context.Context, sessionID string, contextText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session(sessionID).contextText = contextText
	return nil
}

// LoadContext returns the accumulated context, "" for unknown sessions.
func (s *InMemoryStorage) LoadContext(ctx context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return "", nil
	}
	return sess.contextText, nil
}

// AppendTurn records one completed exchange for a session.
func (s *InMemoryStorage) AppendTurn(ctx context.Context, sessionID string, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(sessionID)
	sess.turns = append(sess.turns, turn)
	return nil
}

// LoadTurns returns all recorded turns for a session in order.
func (s *InMemoryStorage) LoadTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return []Turn{}, nil
	}

	// Return a copy to avoid external mutations
	copied := make([]Turn, len(sess.turns))
	copy(copied, sess.turns)
	return copied, nil
}

// Delete removes a session.
func (s *InMemoryStorage) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// ListSessions lists all session IDs.
func (s *InMemoryStorage) ListSessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.sessions))
	for sessionID := range s.sessions {
		sessions = append(sessions, sessionID)
	}
	return sessions, nil
}

// Exists checks if a session exists.
func (s *InMemoryStorage) Exists(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.sessions[sessionID]
	return ok, nil
}

// Verify InMemoryStorage implements ContextStorage
var _ ContextStorage = (*InMemoryStorage)(nil)
