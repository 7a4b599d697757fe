package memory

import (
	"context"
	"fmt"
	"sync"

	"streamledger/internal/core/domain"
	"streamledger/internal/core/ports"
)

// MemoryRegistryRepository holds the singleton registry behind one mutex so
// counter adjustments and category appends are atomic together.
type MemoryRegistryRepository struct {
	registry *domain.Registry
	mu       sync.RWMutex
}

func NewMemoryRegistryRepository() ports.RegistryRepository {
	return &MemoryRegistryRepository{
		registry: domain.NewRegistry(),
	}
}

func (r *MemoryRegistryRepository) Snapshot(ctx context.Context) (*domain.Registry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.registry.Clone(), nil
}

func (r *MemoryRegistryRepository) RecordCreated(ctx context.Context, category string, id domain.StreamID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.registry.TotalStreams++
	r.registry.ByCategory[category] = append(r.registry.ByCategory[category], id)
	return nil
}

func (r *MemoryRegistryRepository) RecordStarted(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.registry.ActiveStreams++
	return nil
}

func (r *MemoryRegistryRepository) RecordEnded(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.registry.ActiveStreams == 0 {
		return fmt.Errorf("active stream count underflow")
	}
	r.registry.ActiveStreams--
	return nil
}

func (r *MemoryRegistryRepository) CategoryStreams(ctx context.Context, category string) ([]domain.StreamID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.registry.ByCategory[category]
	return append([]domain.StreamID(nil), ids...), nil
}
