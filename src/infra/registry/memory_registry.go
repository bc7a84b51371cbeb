package registry

import (
	"context"
	"sync"

	"github.com/goblingibber/arena/src/domain/duel"
	"github.com/goblingibber/arena/src/domain/shared"
)

// MemoryRegistry implements duel.Registry using in-memory storage. Sessions
// are volatile by design; a process restart loses all in-flight state.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[shared.RoomID]*duel.Session
}

// NewMemoryRegistry creates a new in-memory session registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		sessions: make(map[shared.RoomID]*duel.Session),
	}
}

// Save stores a session.
func (r *MemoryRegistry) Save(ctx context.Context, s *duel.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.RoomID] = s
	return nil
}

// Get retrieves a session by room id.
func (r *MemoryRegistry) Get(ctx context.Context, id shared.RoomID) (*duel.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sessions[id]
	if !exists {
		return nil, duel.ErrSessionNotFound
	}

	return s, nil
}

// Delete removes a session. Removal stops all future tick work for it.
func (r *MemoryRegistry) Delete(ctx context.Context, id shared.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

// List returns a snapshot slice of every stored session.
func (r *MemoryRegistry) List(ctx context.Context) ([]*duel.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*duel.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}

	return sessions, nil
}
