package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/strandvm/strand/vm"
)

// Session is one in-flight dialogue run: its checkpoint plus the
// variable store the run mutates.
type Session struct {
	ID         string
	Checkpoint *vm.Checkpoint
	Vars       vm.MapStore

	// mu serializes steps. A resume token lets a second connection
	// obtain the same session while the first is still open, so the
	// checkpoint swap and variable writes must not interleave.
	mu sync.Mutex
}

// SessionStore manages active dialogue sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates a new session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session around the given starting state.
func (s *SessionStore) Create(cp *vm.Checkpoint, vars vm.MapStore) *Session {
	session := &Session{
		ID:         uuid.NewString(),
		Checkpoint: cp,
		Vars:       vars,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session
}

// Restore registers a session under an existing ID, used when loading
// persisted sessions after a restart.
func (s *SessionStore) Restore(id string, cp *vm.Checkpoint, vars vm.MapStore) *Session {
	session := &Session{
		ID:         id,
		Checkpoint: cp,
		Vars:       vars,
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	return session
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	return session, ok
}

// Destroy removes a session.
func (s *SessionStore) Destroy(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len reports the number of active sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
