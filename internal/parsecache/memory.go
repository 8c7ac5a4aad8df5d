package parsecache

import (
	"context"
	"sync"

	"github.com/nacl-lang/workspace/internal/parser"
)

// Memory is a thread-safe in-memory parse cache. Entries are stored per
// filename with their full key; a lookup with a different modification time
// or fingerprint misses and the next Put replaces the entry.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	key    parser.Key
	result *parser.Result
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: map[string]memoryEntry{}}
}

// Get implements parser.Cache.
func (c *Memory) Get(ctx context.Context, key parser.Key) (*parser.Result, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key.Filename]
	if !ok || entry.key != key {
		return nil, false, nil
	}
	return entry.result, true, nil
}

// Put implements parser.Cache.
func (c *Memory) Put(ctx context.Context, key parser.Key, result *parser.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.Filename] = memoryEntry{key: key, result: result}
	return nil
}

// Clear implements parser.Cache.
func (c *Memory) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]memoryEntry{}
	return nil
}

// Rename implements parser.Cache. An in-memory cache has no on-disk
// namespace, so there is nothing to move.
func (c *Memory) Rename(ctx context.Context, newName string) error {
	return nil
}

// Flush implements parser.Cache.
func (c *Memory) Flush(ctx context.Context) error {
	return nil
}

// Clone implements parser.Cache, returning an independent copy of the
// current entries. Cached results are immutable, so they are shared.
func (c *Memory) Clone() parser.Cache {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := &Memory{entries: make(map[string]memoryEntry, len(c.entries))}
	for k, v := range c.entries {
		cp.entries[k] = v
	}
	return cp
}
