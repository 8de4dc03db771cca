package linkcheck

import (
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/renameio/v2"
)

// Entry is one cached probe result.
type Entry struct {
	URL       string    `json:"url"`
	Status    int       `json:"status,omitempty"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// cacheFile is the on-disk container.
type cacheFile struct {
	Entries []Entry `json:"entries"`
}

// Cache remembers probe results between runs so unchanged destinations
// are not re-fetched on every check.
type Cache struct {
	path string
	ttl  time.Duration
	mu   sync.RWMutex
	data map[string]Entry
}

// NewCache creates a cache persisted at path. Entries older than ttl are
// treated as misses.
func NewCache(path string, ttl time.Duration) *Cache {
	return &Cache{
		path: path,
		ttl:  ttl,
		data: make(map[string]Entry),
	}
}

// Load reads the cache from disk. A missing file is an empty cache.
func (c *Cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	var file cacheFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return err
	}
	for _, e := range file.Entries {
		c.data[e.URL] = e
	}
	return nil
}

// Save writes the cache back atomically, dropping expired entries on the
// way out.
func (c *Cache) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	file := cacheFile{Entries: make([]Entry, 0, len(c.data))}
	for _, e := range c.data {
		if c.expired(e, now) {
			continue
		}
		file.Entries = append(file.Entries, e)
	}
	sort.Slice(file.Entries, func(i, j int) bool { return file.Entries[i].URL < file.Entries[j].URL })

	raw, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(c.path)
	if err != nil {
		return err
	}
	defer pending.Cleanup()

	if _, err := pending.Write(raw); err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}

// Get returns a fresh entry for url, or a miss when absent or expired.
func (c *Cache) Get(url string, now time.Time) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[url]
	if !ok || c.expired(e, now) {
		return Entry{}, false
	}
	return e, true
}

// Put records a probe result.
func (c *Cache) Put(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[e.URL] = e
}

// Prune drops expired entries and returns how many were removed.
func (c *Cache) Prune(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for url, e := range c.data {
		if c.expired(e, now) {
			delete(c.data, url)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *Cache) expired(e Entry, now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.CheckedAt) > c.ttl
}
