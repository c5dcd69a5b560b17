package core

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultStageCacheSize bounds the number of memoised stage outputs.
const DefaultStageCacheSize = 512

// StageCache memoises the output of pure per-file stages by ContentHash.
//
// Entries are copied on the way in and out so callers can never mutate
// cached bytes. A nil *StageCache is valid and never hits.
type StageCache struct {
	entries *lru.Cache[ContentHash, []byte]
}

// NewStageCache creates a cache holding at most size entries.
func NewStageCache(size int) (*StageCache, error) {
	if size <= 0 {
		size = DefaultStageCacheSize
	}
	entries, err := lru.New[ContentHash, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("creating stage cache: %w", err)
	}
	return &StageCache{entries: entries}, nil
}

// Get returns a copy of the cached output for hash.
func (c *StageCache) Get(hash ContentHash) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	data, ok := c.entries.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

// Put stores a copy of data under hash.
func (c *StageCache) Put(hash ContentHash, data []byte) {
	if c == nil {
		return
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	c.entries.Add(hash, stored)
}

// Len returns the number of cached entries.
func (c *StageCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
