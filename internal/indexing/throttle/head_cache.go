package throttle

import (
	"context"
	"sync"
	"time"
)

// HeadSource is the slice of the chain client the cache needs.
type HeadSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// HeadCache memoizes the chain head for a short TTL so that tight
// sync passes do not hammer eth_blockNumber faster than blocks arrive.
type HeadCache struct {
	source HeadSource
	ttl    time.Duration

	mu      sync.Mutex
	head    uint64
	expires time.Time
}

// NewHeadCache wraps source with a TTL memo.
func NewHeadCache(source HeadSource, ttl time.Duration) *HeadCache {
	return &HeadCache{source: source, ttl: ttl}
}

// BlockNumber returns the memoized head while it is fresh, otherwise
// asks the source. Errors are returned as-is and never cached.
func (c *HeadCache) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.expires) {
		return c.head, nil
	}

	head, err := c.source.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	c.head = head
	c.expires = time.Now().Add(c.ttl)
	return head, nil
}

// Invalidate drops the memo. Used after outages and rollbacks, when
// the remembered head may belong to an abandoned fork.
func (c *HeadCache) Invalidate() {
	c.mu.Lock()
	c.expires = time.Time{}
	c.mu.Unlock()
}
