package redis

import (
	"context"
	"sync"
)

const knownTokensKey = "known_tokens"

// TokenCache remembers which token contracts are already registered.
// Membership is kept in a Redis set so it survives restarts, with a
// process-local write-through map in front so the hot path rarely
// touches the network. Redis errors degrade to cache misses.
type TokenCache struct {
	client *Client

	mu    sync.RWMutex
	local map[string]struct{}
}

// NewTokenCache creates a token cache backed by Redis. A nil client
// yields a purely process-local cache.
func NewTokenCache(client *Client) *TokenCache {
	return &TokenCache{
		client: client,
		local:  make(map[string]struct{}),
	}
}

// Contains reports whether the contract address is known.
func (c *TokenCache) Contains(ctx context.Context, address string) bool {
	c.mu.RLock()
	_, ok := c.local[address]
	c.mu.RUnlock()
	if ok {
		return true
	}

	if c.client == nil {
		return false
	}

	known, err := c.client.rdb.SIsMember(ctx, knownTokensKey, address).Result()
	if err != nil || !known {
		return false
	}

	c.mu.Lock()
	c.local[address] = struct{}{}
	c.mu.Unlock()
	return true
}

// Add marks the contract address as known.
func (c *TokenCache) Add(ctx context.Context, address string) {
	c.mu.Lock()
	c.local[address] = struct{}{}
	c.mu.Unlock()

	if c.client != nil {
		c.client.rdb.SAdd(ctx, knownTokensKey, address)
	}
}

// Clear forgets every known contract. Called after a rollback, when
// registered tokens may no longer have rows.
func (c *TokenCache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.local = make(map[string]struct{})
	c.mu.Unlock()

	if c.client != nil {
		c.client.rdb.Del(ctx, knownTokensKey)
	}
}
