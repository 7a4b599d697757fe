package services

import (
	"context"
	"fmt"
	"time"

	"streamledger/internal/core/domain"
	"streamledger/internal/core/ports"
	"streamledger/pkg/cache"
)

// cachedLedgerView fronts the accessor surface with a short-lived cache.
// Accessors are pure projections so a stale read only lags the ledger by the
// TTL, it never observes a partially applied transaction.
type cachedLedgerView struct {
	reader ports.LedgerReader
	cache  *cache.CacheWithFallback
	ttl    time.Duration
}

func NewCachedLedgerView(reader ports.LedgerReader, ttl time.Duration) ports.LedgerReader {
	return &cachedLedgerView{
		reader: reader,
		cache:  cache.NewCacheWithFallback(ttl),
		ttl:    ttl,
	}
}

func (v *cachedLedgerView) GetStream(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	key := fmt.Sprintf("stream:%s", id)
	value, err := v.cache.GetOrSet(ctx, key, func(ctx context.Context) (interface{}, error) {
		return v.reader.GetStream(ctx, id)
	}, v.ttl)
	if err != nil {
		return nil, err
	}
	return value.(*domain.Stream), nil
}

func (v *cachedLedgerView) GetSegment(ctx context.Context, id domain.StreamID, segmentNumber uint64) (domain.BlobRef, error) {
	key := fmt.Sprintf("segment:%s:%d", id, segmentNumber)
	value, err := v.cache.GetOrSet(ctx, key, func(ctx context.Context) (interface{}, error) {
		return v.reader.GetSegment(ctx, id, segmentNumber)
	}, v.ttl)
	if err != nil {
		return "", err
	}
	return value.(domain.BlobRef), nil
}

func (v *cachedLedgerView) GetSession(ctx context.Context, id domain.SessionID) (*domain.ViewerSession, error) {
	// Sessions mutate on every heartbeat, caching them would hide watch
	// time updates from the caller that just sent one.
	return v.reader.GetSession(ctx, id)
}

func (v *cachedLedgerView) RegistrySnapshot(ctx context.Context) (*domain.Registry, error) {
	value, err := v.cache.GetOrSet(ctx, "registry", func(ctx context.Context) (interface{}, error) {
		return v.reader.RegistrySnapshot(ctx)
	}, v.ttl)
	if err != nil {
		return nil, err
	}
	return value.(*domain.Registry), nil
}

func (v *cachedLedgerView) StreamsByCategory(ctx context.Context, category string) ([]domain.StreamID, error) {
	key := fmt.Sprintf("category:%s", category)
	value, err := v.cache.GetOrSet(ctx, key, func(ctx context.Context) (interface{}, error) {
		return v.reader.StreamsByCategory(ctx, category)
	}, v.ttl)
	if err != nil {
		return nil, err
	}
	return value.([]domain.StreamID), nil
}
