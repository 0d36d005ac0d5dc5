package agents

import (
	"sync"

	"github.com/advisim/advisim/internal/domain/models"
)

// ContextStore holds the live simulation context for each active session.
// Tool handlers read and mutate contexts concurrently with HTTP turns, so
// all access goes through the lock.
type ContextStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.SimulationContext
}

func NewContextStore() *ContextStore {
	return &ContextStore{sessions: make(map[string]*models.SimulationContext)}
}

// Set registers or replaces the context for a session.
func (s *ContextStore) Set(sessionID string, simCtx *models.SimulationContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = simCtx
}

// Get returns the context for a session, or false if the session is not
// active.
func (s *ContextStore) Get(sessionID string) (*models.SimulationContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	simCtx, ok := s.sessions[sessionID]
	return simCtx, ok
}

// UpdateObjectives records objective progress for a session. The write
// goes through the store lock because guidance turns read progress
// concurrently with the client agent's tool calls. Returns false when
// the session is not active.
func (s *ContextStore) UpdateObjectives(sessionID string, progress models.ObjectiveProgress) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	simCtx, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	simCtx.Objectives = &progress
	return true
}

// Objectives returns a copy of the recorded progress for a session, or
// false when the session is unknown or no progress has been recorded.
func (s *ContextStore) Objectives(sessionID string) (models.ObjectiveProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	simCtx, ok := s.sessions[sessionID]
	if !ok || simCtx.Objectives == nil {
		return models.ObjectiveProgress{}, false
	}
	return *simCtx.Objectives, true
}

// Delete drops a session's context. Deleting an unknown session is a
// no-op.
func (s *ContextStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Len reports the number of active sessions.
func (s *ContextStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
