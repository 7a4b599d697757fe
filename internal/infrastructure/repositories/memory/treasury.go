package memory

import (
	"context"
	"sync"

	"streamledger/internal/core/domain"
)

// MemoryTreasury is an in-process account table standing in for the host
// ledger's native-currency transfers. Tests read the receiving side through
// BalanceOf.
type MemoryTreasury struct {
	accounts map[domain.Address]uint64
	mu       sync.RWMutex
}

func NewMemoryTreasury() *MemoryTreasury {
	return &MemoryTreasury{
		accounts: make(map[domain.Address]uint64),
	}
}

func (t *MemoryTreasury) Transfer(ctx context.Context, to domain.Address, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.accounts[to] += amount
	return nil
}

func (t *MemoryTreasury) BalanceOf(addr domain.Address) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.accounts[addr]
}
