package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactsCache_Basic(t *testing.T) {
	c := newFactsCache(2)
	t0 := time.Now()

	a := &moduleFacts{}
	b := &moduleFacts{}
	c.put("/a.py", a, t0, 10)
	c.put("/b.py", b, t0, 20)

	got, ok := c.get("/a.py", t0, 10)
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, 2, c.len())

	_, ok = c.get("/missing.py", t0, 10)
	assert.False(t, ok)
}

func TestFactsCache_StaleEntryIsAMiss(t *testing.T) {
	c := newFactsCache(4)
	t0 := time.Now()
	c.put("/a.py", &moduleFacts{}, t0, 10)

	// The file was rewritten: different mtime, different size, or both.
	_, ok := c.get("/a.py", t0.Add(time.Second), 10)
	assert.False(t, ok, "newer mtime invalidates")
	assert.Equal(t, 0, c.len(), "the stale entry is dropped")

	c.put("/a.py", &moduleFacts{}, t0, 10)
	_, ok = c.get("/a.py", t0, 99)
	assert.False(t, ok, "changed size invalidates")

	fresh := &moduleFacts{}
	c.put("/a.py", fresh, t0, 10)
	got, ok := c.get("/a.py", t0, 10)
	require.True(t, ok)
	assert.Same(t, fresh, got)
}

func TestFactsCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newFactsCache(2)
	t0 := time.Now()
	c.put("/a.py", &moduleFacts{}, t0, 1)
	c.put("/b.py", &moduleFacts{}, t0, 1)

	// Touch a so b becomes the eviction candidate.
	_, ok := c.get("/a.py", t0, 1)
	require.True(t, ok)

	c.put("/c.py", &moduleFacts{}, t0, 1)

	_, ok = c.get("/b.py", t0, 1)
	assert.False(t, ok, "b was least recently used")
	_, ok = c.get("/a.py", t0, 1)
	assert.True(t, ok)
	_, ok = c.get("/c.py", t0, 1)
	assert.True(t, ok)
	assert.Equal(t, 2, c.len())
}

func TestFactsCache_OverwriteKeepsSize(t *testing.T) {
	c := newFactsCache(2)
	t0 := time.Now()
	first := &moduleFacts{}
	second := &moduleFacts{}
	c.put("/a.py", first, t0, 10)
	c.put("/a.py", second, t0.Add(time.Second), 12)

	got, ok := c.get("/a.py", t0.Add(time.Second), 12)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, c.len())
}
