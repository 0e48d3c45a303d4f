package output

import (
	"fmt"
	"image"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 8

type cacheKey struct {
	sessionID string
	revision  uint64
}

// Cache memoizes encoded PNG bytes per session revision, so repeated save,
// copy and image requests against an unchanged document encode once.
type Cache struct {
	lru *lru.Cache[cacheKey, []byte]
}

// NewCache creates a cache holding up to size artifacts.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := lru.New[cacheKey, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create encode cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Encode returns the cached bytes for (sessionID, revision) or encodes img.
func (c *Cache) Encode(sessionID string, revision uint64, img image.Image) ([]byte, error) {
	key := cacheKey{sessionID, revision}
	if data, ok := c.lru.Get(key); ok {
		return data, nil
	}
	data, err := Encode(img)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, data)
	return data, nil
}

// Forget drops every entry for a session.
func (c *Cache) Forget(sessionID string) {
	for _, k := range c.lru.Keys() {
		if k.sessionID == sessionID {
			c.lru.Remove(k)
		}
	}
}

// Len returns the number of cached artifacts.
func (c *Cache) Len() int {
	return c.lru.Len()
}
