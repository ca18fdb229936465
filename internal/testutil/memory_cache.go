package testutil

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// MemoryCache is an in-process cache.Cache for tests. TTLs are recorded but
// never expire entries.
type MemoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	TTLs map[string]time.Duration

	// Err, when set, is returned by every operation.
	Err error
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: map[string][]byte{}, TTLs: map[string]time.Duration{}}
}

func (c *MemoryCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, c.Err
	}
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *MemoryCache) TakeJSON(ctx context.Context, key string, dst any) (bool, error) {
	hit, err := c.GetJSON(ctx, key, dst)
	if hit && err == nil {
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()
	}
	return hit, err
}

func (c *MemoryCache) SetJSON(_ context.Context, key string, val any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.data[key] = b
	c.TTLs[key] = ttl
	return nil
}

func (c *MemoryCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *MemoryCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// Keys lists stored keys that start with prefix.
func (c *MemoryCache) Keys(prefix string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}
