package memory

import (
	"context"
	"fmt"
	"sync"

	"streamledger/internal/core/domain"
	"streamledger/internal/core/ports"
)

type MemorySessionRepository struct {
	sessions map[domain.SessionID]*domain.ViewerSession
	mu       sync.RWMutex
}

func NewMemorySessionRepository() ports.SessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[domain.SessionID]*domain.ViewerSession),
	}
}

func (r *MemorySessionRepository) Create(ctx context.Context, session *domain.ViewerSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; exists {
		return fmt.Errorf("session already exists: %s", session.ID)
	}

	r.sessions[session.ID] = session.Clone()
	return nil
}

func (r *MemorySessionRepository) GetByID(ctx context.Context, id domain.SessionID) (*domain.ViewerSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}

	return session.Clone(), nil
}

func (r *MemorySessionRepository) Mutate(ctx context.Context, id domain.SessionID, fn func(*domain.ViewerSession) error) (*domain.ViewerSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}

	scratch := session.Clone()
	if err := fn(scratch); err != nil {
		return nil, err
	}

	r.sessions[id] = scratch
	return scratch.Clone(), nil
}

func (r *MemorySessionRepository) Delete(ctx context.Context, id domain.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}
