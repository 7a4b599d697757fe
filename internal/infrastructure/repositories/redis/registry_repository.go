package redis

import (
	"context"
	"fmt"
	"strconv"

	"streamledger/internal/core/domain"
	"streamledger/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const (
	registryField = "registry"
	totalField    = "total_streams"
	activeField   = "active_streams"
)

// RedisRegistryRepository keeps the singleton counters in a hash mutated
// with HIncrBy and the category buckets as RPush-only lists. Both are
// server-side atomic, which is what keeps total/active true under
// concurrent create/start/end calls from multiple instances.
type RedisRegistryRepository struct {
	client *redis.Client
}

func NewRedisRegistryRepository(client *redis.Client) ports.RegistryRepository {
	return &RedisRegistryRepository{client: client}
}

func (r *RedisRegistryRepository) registryKey() string {
	return keyPrefix + registryField
}

func (r *RedisRegistryRepository) categoryKey(category string) string {
	return keyPrefix + "category:" + category
}

func (r *RedisRegistryRepository) Snapshot(ctx context.Context) (*domain.Registry, error) {
	fields, err := r.client.HGetAll(ctx, r.registryKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	reg := domain.NewRegistry()
	if reg.TotalStreams, err = parseCounter(fields[totalField]); err != nil {
		return nil, fmt.Errorf("corrupt %s counter: %w", totalField, err)
	}
	if reg.ActiveStreams, err = parseCounter(fields[activeField]); err != nil {
		return nil, fmt.Errorf("corrupt %s counter: %w", activeField, err)
	}

	var cursor uint64
	pattern := keyPrefix + "category:*"
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan categories: %w", err)
		}
		for _, key := range keys {
			ids, err := r.client.LRange(ctx, key, 0, -1).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to read category %s: %w", key, err)
			}
			category := key[len(keyPrefix+"category:"):]
			bucket := make([]domain.StreamID, 0, len(ids))
			for _, id := range ids {
				bucket = append(bucket, domain.StreamID(id))
			}
			reg.ByCategory[category] = bucket
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return reg, nil
}

// parseCounter reads a hash counter field. An absent field means the
// counter was never incremented and reads as zero; anything else must be a
// well-formed non-negative integer.
func parseCounter(raw string) (uint64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

func (r *RedisRegistryRepository) RecordCreated(ctx context.Context, category string, id domain.StreamID) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, r.registryKey(), totalField, 1)
		pipe.RPush(ctx, r.categoryKey(category), string(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record created stream: %w", err)
	}
	return nil
}

func (r *RedisRegistryRepository) RecordStarted(ctx context.Context) error {
	if err := r.client.HIncrBy(ctx, r.registryKey(), activeField, 1).Err(); err != nil {
		return fmt.Errorf("failed to record started stream: %w", err)
	}
	return nil
}

func (r *RedisRegistryRepository) RecordEnded(ctx context.Context) error {
	active, err := r.client.HIncrBy(ctx, r.registryKey(), activeField, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to record ended stream: %w", err)
	}
	if active < 0 {
		r.client.HSet(ctx, r.registryKey(), activeField, 0)
		return fmt.Errorf("active stream count underflow")
	}
	return nil
}

func (r *RedisRegistryRepository) CategoryStreams(ctx context.Context, category string) ([]domain.StreamID, error) {
	ids, err := r.client.LRange(ctx, r.categoryKey(category), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read category %s: %w", category, err)
	}
	out := make([]domain.StreamID, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.StreamID(id))
	}
	return out, nil
}
