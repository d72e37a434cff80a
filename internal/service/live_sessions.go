package service

import (
	"sync"

	"github.com/berrylive/live-service/internal/domain"
)

// SessionRegistry holds the ephemeral live session of every active room.
// Sessions are created when a room opens and dropped when it closes; they
// are never persisted.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*domain.LiveSession
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*domain.LiveSession)}
}

// Open creates the session for a room. Reopening an existing room id
// returns the session already in place.
func (r *SessionRegistry) Open(roomID string) *domain.LiveSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[roomID]; ok {
		return s
	}
	s := domain.NewLiveSession(roomID)
	r.sessions[roomID] = s
	return s
}

// Get returns the room's session, if the room is live.
func (r *SessionRegistry) Get(roomID string) (*domain.LiveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[roomID]
	return s, ok
}

// Close drops the room's session. Per-session state is gone after this.
func (r *SessionRegistry) Close(roomID string) {
	r.mu.Lock()
	delete(r.sessions, roomID)
	r.mu.Unlock()
}
