// Package cache provides short-lived claim keys used to suppress duplicate
// notifications: an in-memory TTL store for single instances and a Redis
// store when several instances share the work.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store claims keys for a limited time.
type Store interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Stats(ctx context.Context) map[string]interface{}
	Close() error
}

// Open returns a Redis store when addr is set, otherwise an in-memory one.
func Open(addr, password string) Store {
	if addr == "" {
		return New()
	}
	return NewRedis(addr, password)
}

// Cache is a thread-safe in-memory TTL claim store.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// New creates a cache and starts its eviction loop. Call Close to stop it.
func New() *Cache {
	c := &Cache{
		entries: make(map[string]time.Time),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go c.evictLoop()
	return c
}

// Claim records key until ttl elapses. It returns false if key is already
// held and not expired.
func (c *Cache) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if exp, ok := c.entries[key]; ok && now.Before(exp) {
		return false, nil
	}
	c.entries[key] = now.Add(ttl)
	return true, nil
}

// Release drops key so it can be claimed again.
func (c *Cache) Release(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Stats returns cache statistics.
func (c *Cache) Stats(context.Context) map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	active := 0
	now := c.now()
	for _, exp := range c.entries {
		if now.Before(exp) {
			active++
		}
	}
	return map[string]interface{}{
		"backend":      "memory",
		"total_keys":   len(c.entries),
		"active_keys":  active,
		"expired_keys": len(c.entries) - active,
	}
}

// Close stops the eviction loop.
func (c *Cache) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

// evictLoop periodically removes expired entries.
func (c *Cache) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.evict()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, exp := range c.entries {
		if !now.Before(exp) {
			delete(c.entries, key)
		}
	}
}
