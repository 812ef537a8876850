package cache

import (
	"sync"
	"time"
)

// MemoryClient is an in-process cache backend. It is the default for
// single-node runs where standing up memcached or redis would be
// overkill; entries vanish when the daemon restarts.
type MemoryClient struct {
	mu sync.RWMutex
	kv map[string]memoryEntry
}

type memoryEntry struct {
	value    []byte
	deadline time.Time
	expiry   time.Time
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{kv: make(map[string]memoryEntry)}
}

func (c *MemoryClient) GetKey(k Keyer) ([]byte, time.Time, error) {
	c.mu.RLock()
	e, ok := c.kv[k.Key()]
	c.mu.RUnlock()
	if !ok {
		return nil, time.Time{}, ErrNotCached
	}
	if time.Now().After(e.expiry) {
		c.mu.Lock()
		delete(c.kv, k.Key())
		c.mu.Unlock()
		return nil, time.Time{}, ErrNotCached
	}
	return e.value, e.deadline, nil
}

func (c *MemoryClient) SetKey(k Keyer, deadline time.Time, v []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kv[k.Key()] = memoryEntry{
		value:    v,
		deadline: deadline,
		expiry:   time.Now().Add(GracePeriodDeadline(deadline)),
	}
	return nil
}
