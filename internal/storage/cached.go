package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/aecwatch/pkg/types"
)

// DefaultCacheSize is the number of path lookups kept by CachedStorage
const DefaultCacheSize = 4096

// CachedStorage fronts a Storage with an LRU of GetByPath results. Change
// detection reads every path in every batch, so the hot lookup stays in memory.
type CachedStorage struct {
	Storage

	// mu orders cache fills against invalidations: readers share it, writers
	// hold it exclusively across the inner write and the eviction.
	mu    sync.RWMutex
	cache *lru.Cache[string, *types.FileRecord]
}

// NewCachedStorage wraps inner with a cache of size entries
func NewCachedStorage(inner Storage, size int) (*CachedStorage, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *types.FileRecord](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return &CachedStorage{Storage: inner, cache: cache}, nil
}

func (c *CachedStorage) GetByPath(ctx context.Context, path string) (*types.FileRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if r, ok := c.cache.Get(path); ok {
		return r.Clone(), nil
	}
	r, err := c.Storage.GetByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	c.cache.Add(path, r.Clone())
	return r, nil
}

func (c *CachedStorage) UpsertRecord(ctx context.Context, record *types.FileRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Remove(record.Path)
	return c.Storage.UpsertRecord(ctx, record)
}

func (c *CachedStorage) Touch(ctx context.Context, path string, processedAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Remove(path)
	return c.Storage.Touch(ctx, path, processedAt)
}

func (c *CachedStorage) SetCurrentFlags(ctx context.Context, flags map[string]bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for path := range flags {
		c.cache.Remove(path)
	}
	return c.Storage.SetCurrentFlags(ctx, flags)
}

// Len reports the number of cached paths
func (c *CachedStorage) Len() int {
	return c.cache.Len()
}
