package session

import (
	"context"
	"sync"
)

// Manager owns the live sessions of the process.
type Manager struct {
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a new session manager.
func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Open creates and opens a session for identity in room. If opening fails the
// session is already closed when the error is returned.
func (m *Manager) Open(ctx context.Context, room, identity string, transport Transport) (*Session, error) {
	s := New(room, identity, transport, m.deps)
	if err := s.Open(ctx); err != nil {
		s.Close(ctx)
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s, nil
}

// Release closes the session and forgets it.
func (m *Manager) Release(ctx context.Context, s *Session) {
	s.Close(ctx)

	m.mu.Lock()
	delete(m.sessions, s.ID())
	m.mu.Unlock()
}

// Get returns the live session with the given ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count returns the number of live sessions in room.
func (m *Manager) Count(room string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, s := range m.sessions {
		if s.Room() == room {
			n++
		}
	}
	return n
}

// ActiveCount returns the number of live sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close closes every live session.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	ctx := context.Background()
	for _, s := range sessions {
		s.Close(ctx)
	}
	return nil
}
