package memory

import (
	"context"
	"fmt"
	"sync"

	"streamledger/internal/core/domain"
	"streamledger/internal/core/ports"
)

type MemoryStreamRepository struct {
	streams map[domain.StreamID]*domain.Stream
	mu      sync.RWMutex
}

func NewMemoryStreamRepository() ports.StreamRepository {
	return &MemoryStreamRepository{
		streams: make(map[domain.StreamID]*domain.Stream),
	}
}

func (r *MemoryStreamRepository) Create(ctx context.Context, stream *domain.Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.streams[stream.ID]; exists {
		return fmt.Errorf("stream already exists: %s", stream.ID)
	}

	r.streams[stream.ID] = stream.Clone()
	return nil
}

func (r *MemoryStreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stream, exists := r.streams[id]
	if !exists {
		return nil, domain.ErrStreamNotFound
	}

	return stream.Clone(), nil
}

// Mutate runs fn on a copy under the write lock and commits the copy only
// when fn succeeds. A failing fn leaves the stored aggregate untouched.
func (r *MemoryStreamRepository) Mutate(ctx context.Context, id domain.StreamID, fn func(*domain.Stream) error) (*domain.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stream, exists := r.streams[id]
	if !exists {
		return nil, domain.ErrStreamNotFound
	}

	scratch := stream.Clone()
	if err := fn(scratch); err != nil {
		return nil, err
	}

	r.streams[id] = scratch
	return scratch.Clone(), nil
}

func (r *MemoryStreamRepository) Delete(ctx context.Context, id domain.StreamID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.streams, id)
	return nil
}
