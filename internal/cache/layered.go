package cache

import (
	"errors"
	"time"
)

// LayeredCache reads through a fast layer to a durable one and writes both
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache combines a memory and a disk cache
func NewLayeredCache(memory, disk Cache) *LayeredCache {
	return &LayeredCache{memory: memory, disk: disk}
}

// NewMediaCache builds the cache used for fetched media: memory in front of
// files under dir. An empty dir yields a memory-only cache.
func NewMediaCache(dir string, ttl time.Duration) Cache {
	mem := NewMemoryCache(ttl, 10*time.Minute)
	if dir == "" {
		return mem
	}
	return NewLayeredCache(mem, NewDiskCache(dir, ttl))
}

// Get checks memory first and promotes disk hits
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if v, ok := c.memory.Get(key); ok {
		return v, true
	}

	if v, ok := c.disk.Get(key); ok {
		_ = c.memory.Set(key, v, 0)
		return v, true
	}

	return nil, false
}

func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, value, ttl)
}

func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.memory.Delete(key), c.disk.Delete(key))
}

func (c *LayeredCache) Clear() error {
	return errors.Join(c.memory.Clear(), c.disk.Clear())
}
