package redis

import (
	"context"
	"fmt"

	"streamledger/internal/core/domain"
	"streamledger/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const treasuryKey = keyPrefix + "treasury"

// RedisTreasury credits accounts in a hash. HIncrBy is atomic server-side so
// concurrent payouts to the same address never lose value.
type RedisTreasury struct {
	client *redis.Client
}

func NewRedisTreasury(client *redis.Client) *RedisTreasury {
	return &RedisTreasury{client: client}
}

func (t *RedisTreasury) Transfer(ctx context.Context, to domain.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if err := t.client.HIncrBy(ctx, treasuryKey, string(to), int64(amount)).Err(); err != nil {
		return fmt.Errorf("failed to credit %s: %w", to, err)
	}
	return nil
}

func (t *RedisTreasury) BalanceOf(ctx context.Context, addr domain.Address) (uint64, error) {
	value, err := t.client.HGet(ctx, treasuryKey, string(addr)).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance of %s: %w", addr, err)
	}
	return value, nil
}

var _ ports.Treasury = (*RedisTreasury)(nil)
