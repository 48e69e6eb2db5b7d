package session

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Store manages sessions keyed by UUID.
//
// Store is safe for concurrent use by multiple goroutines. The store lock
// only guards the session map; per-session history is guarded by the
// session's own lock.
type Store struct {
	maxHistory int
	logger     *slog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewStore creates a session store retaining maxHistory exchanges per
// session (DefaultMaxHistory when <= 0).
func NewStore(maxHistory int, logger *slog.Logger) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		maxHistory: maxHistory,
		logger:     logger,
		sessions:   make(map[uuid.UUID]*Session),
	}
}

// GetOrCreate returns the session with the given ID, creating it if absent.
// Passing uuid.Nil always creates a fresh session with a new ID; callers
// keep the returned session's ID to continue the conversation.
func (s *Store) GetOrCreate(id uuid.UUID) *Session {
	if id == uuid.Nil {
		id = uuid.New()
	}

	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess = &Session{id: id, max: s.maxHistory}
	s.sessions[id] = sess
	s.logger.Debug("created session", "id", id)
	return sess
}

// Get returns the session with the given ID, or nil when it does not exist.
func (s *Store) Get(id uuid.UUID) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Delete removes a session. Deleting an unknown ID is a no-op.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
