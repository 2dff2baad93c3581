package remote

import "sync"

type folderKey struct {
	parent string
	name   string
}

// FolderCache maps (parent, name) to a remote folder id. Entries live for
// the life of the process and are never invalidated, so a folder deleted
// remotely is not noticed until restart.
type FolderCache struct {
	mu      sync.RWMutex
	entries map[folderKey]string
}

// NewFolderCache creates an empty cache.
func NewFolderCache() *FolderCache {
	return &FolderCache{entries: make(map[folderKey]string)}
}

// Get returns the cached folder id.
func (c *FolderCache) Get(parent, name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.entries[folderKey{parent, name}]
	return id, ok
}

// Put stores a resolved folder id.
func (c *FolderCache) Put(parent, name, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[folderKey{parent, name}] = id
}

// Len returns the number of cached folders.
func (c *FolderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
