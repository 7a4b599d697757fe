package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"streamledger/internal/core/domain"
	"streamledger/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// maxCommitRetries bounds the optimistic-concurrency loop. Conflicts only
// happen when two transactions race on the same stream.
const maxCommitRetries = 16

type RedisStreamRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisStreamRepository(client *redis.Client) ports.StreamRepository {
	return &RedisStreamRepository{
		client: client,
		prefix: keyPrefix + "stream:",
	}
}

func (r *RedisStreamRepository) streamKey(id domain.StreamID) string {
	return r.prefix + string(id)
}

func (r *RedisStreamRepository) Create(ctx context.Context, stream *domain.Stream) error {
	data, err := json.Marshal(stream)
	if err != nil {
		return fmt.Errorf("failed to marshal stream: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.streamKey(stream.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set stream in Redis: %w", err)
	}
	if !ok {
		return fmt.Errorf("stream already exists: %s", stream.ID)
	}
	return nil
}

func (r *RedisStreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	data, err := r.client.Get(ctx, r.streamKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrStreamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stream from Redis: %w", err)
	}

	var stream domain.Stream
	if err := json.Unmarshal([]byte(data), &stream); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stream: %w", err)
	}
	return &stream, nil
}

// Mutate commits fn's changes under WATCH/MULTI. A concurrent writer makes
// EXEC fail, in which case the whole read-validate-write cycle reruns; a
// failing fn aborts without touching the stored aggregate.
func (r *RedisStreamRepository) Mutate(ctx context.Context, id domain.StreamID, fn func(*domain.Stream) error) (*domain.Stream, error) {
	key := r.streamKey(id)

	var result *domain.Stream
	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return domain.ErrStreamNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get stream from Redis: %w", err)
		}

		var stream domain.Stream
		if err := json.Unmarshal([]byte(data), &stream); err != nil {
			return fmt.Errorf("failed to unmarshal stream: %w", err)
		}
		if err := fn(&stream); err != nil {
			return err
		}

		payload, err := json.Marshal(&stream)
		if err != nil {
			return fmt.Errorf("failed to marshal stream: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err != nil {
			return err
		}
		result = &stream
		return nil
	}

	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		err := r.client.Watch(ctx, txn, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("stream %s: too many commit conflicts", id)
}

func (r *RedisStreamRepository) Delete(ctx context.Context, id domain.StreamID) error {
	if err := r.client.Del(ctx, r.streamKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete stream from Redis: %w", err)
	}
	return nil
}
