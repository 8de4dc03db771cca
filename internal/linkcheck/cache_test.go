package linkcheck

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkcheck.json")
	now := time.Now()

	c1 := NewCache(path, time.Hour)
	c1.Put(Entry{URL: "https://example.com/a", Status: 200, OK: true, CheckedAt: now})
	c1.Put(Entry{URL: "https://example.com/old", Status: 200, OK: true, CheckedAt: now.Add(-2 * time.Hour)})
	require.NoError(t, c1.Save())

	c2 := NewCache(path, time.Hour)
	require.NoError(t, c2.Load())

	// The stale entry was dropped on save.
	assert.Equal(t, 1, c2.Len())
	e, ok := c2.Get("https://example.com/a", now)
	require.True(t, ok)
	assert.Equal(t, 200, e.Status)
	assert.True(t, e.OK)

	_, ok = c2.Get("https://example.com/old", now)
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	now := time.Now()
	c := NewCache("", time.Hour)
	c.Put(Entry{URL: "https://example.com/a", Status: 200, OK: true, CheckedAt: now})

	_, ok := c.Get("https://example.com/a", now.Add(30*time.Minute))
	assert.True(t, ok)
	_, ok = c.Get("https://example.com/a", now.Add(2*time.Hour))
	assert.False(t, ok)

	// A zero TTL never expires.
	forever := NewCache("", 0)
	forever.Put(Entry{URL: "https://example.com/a", CheckedAt: now})
	_, ok = forever.Get("https://example.com/a", now.Add(24*365*time.Hour))
	assert.True(t, ok)
}

func TestCachePrune(t *testing.T) {
	now := time.Now()
	c := NewCache("", time.Hour)
	c.Put(Entry{URL: "https://example.com/fresh", CheckedAt: now})
	c.Put(Entry{URL: "https://example.com/stale", CheckedAt: now.Add(-3 * time.Hour)})

	assert.Equal(t, 1, c.Prune(now))
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("https://example.com/fresh", now)
	assert.True(t, ok)
}

func TestCacheLoadMissingFile(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "absent.json"), time.Hour)
	require.NoError(t, c.Load())
	assert.Equal(t, 0, c.Len())
}
