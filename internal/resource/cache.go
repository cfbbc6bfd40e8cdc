package resource

import (
	"io/fs"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of records kept between builds.
const DefaultCacheSize = 1024

type cacheEntry struct {
	size    int64
	modTime time.Time
	record  *FileRecord
}

// Cache keeps classified records between builds of the same input tree so
// that unchanged files are not read again. It is safe for concurrent use.
type Cache struct {
	entries *lru.Cache[string, cacheEntry]
}

// NewCache creates a cache holding at most size records.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// Get returns the cached record for name if the file still has the size and
// modification time it had when it was cached.
func (c *Cache) Get(name string, info fs.FileInfo) (*FileRecord, bool) {
	e, ok := c.entries.Get(name)
	if !ok {
		return nil, false
	}
	if e.size != info.Size() || !e.modTime.Equal(info.ModTime()) {
		c.entries.Remove(name)
		return nil, false
	}
	return e.record, true
}

// Put stores rec for name.
func (c *Cache) Put(name string, info fs.FileInfo, rec *FileRecord) {
	c.entries.Add(name, cacheEntry{
		size:    info.Size(),
		modTime: info.ModTime(),
		record:  rec,
	})
}

// Invalidate drops the record for name.
func (c *Cache) Invalidate(name string) {
	c.entries.Remove(name)
}

// Purge drops every record.
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	return c.entries.Len()
}
