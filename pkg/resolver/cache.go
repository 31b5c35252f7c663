package resolver

import (
	"sync"
	"time"
)

// factsCache is a small LRU over per-file parse results. Repeated analyses
// touch the same files many times (every parent re-reads its imports), so
// parses are kept until capacity pressure evicts the oldest. Entries are
// validated against the file's mtime and size on lookup: the rewrite passes
// modify files mid-run, and facts parsed before a rewrite must never answer
// for the file after it.
type factsCache struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*factsItem
	head    *factsItem // most recently used
	tail    *factsItem // least recently used
}

type factsItem struct {
	key     string
	facts   *moduleFacts
	modTime time.Time
	size    int64
	prev    *factsItem
	next    *factsItem
}

func newFactsCache(maxSize int) *factsCache {
	if maxSize <= 0 {
		maxSize = 128
	}
	return &factsCache{
		maxSize: maxSize,
		items:   make(map[string]*factsItem),
	}
}

// get returns the cached facts for key, only if they were parsed from a file
// with the same mtime and size. A stale entry is dropped and reported as a
// miss.
func (c *factsCache) get(key string, modTime time.Time, size int64) (*moduleFacts, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found {
		return nil, false
	}
	if !item.modTime.Equal(modTime) || item.size != size {
		c.unlink(item)
		delete(c.items, key)
		return nil, false
	}
	c.moveToFront(item)
	return item.facts, true
}

func (c *factsCache) put(key string, facts *moduleFacts, modTime time.Time, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, exists := c.items[key]; exists {
		item.facts = facts
		item.modTime = modTime
		item.size = size
		c.moveToFront(item)
		return
	}

	item := &factsItem{key: key, facts: facts, modTime: modTime, size: size}
	c.items[key] = item
	c.pushFront(item)

	for len(c.items) > c.maxSize {
		evicted := c.removeBack()
		if evicted == nil {
			break
		}
		delete(c.items, evicted.key)
	}
}

func (c *factsCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *factsCache) moveToFront(item *factsItem) {
	if item == c.head {
		return
	}
	c.unlink(item)
	c.pushFront(item)
}

func (c *factsCache) unlink(item *factsItem) {
	if item.prev != nil {
		item.prev.next = item.next
	} else if c.head == item {
		c.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else if c.tail == item {
		c.tail = item.prev
	}
	item.prev = nil
	item.next = nil
}

func (c *factsCache) pushFront(item *factsItem) {
	item.next = c.head
	item.prev = nil
	if c.head != nil {
		c.head.prev = item
	}
	c.head = item
	if c.tail == nil {
		c.tail = item
	}
}

func (c *factsCache) removeBack() *factsItem {
	if c.tail == nil {
		return nil
	}
	item := c.tail
	c.unlink(item)
	return item
}
