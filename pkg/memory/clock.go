// Package memory implements the buffer pool: a fixed set of page slots with
// clock (second-chance) replacement, transaction-aware page access, and the
// commit/abort machinery that keeps the NO-STEAL / FORCE discipline.
package memory

import (
	"heapstore/pkg/dberr"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
)

// slot is one buffer frame: the cached page, its key, and the clock
// reference bit.
type slot struct {
	key      primitives.PageKey
	page     page.Page
	ref      bool
	occupied bool
}

// ClockCache is the pool's slot array with second-chance replacement state.
// It is not internally synchronized: the PageStore mutex serializes every
// call, keeping one locking discipline over the pool.
type ClockCache struct {
	slots []slot
	index map[primitives.PageKey]int
	hand  int
}

// NewClockCache creates a cache with the given fixed capacity.
func NewClockCache(capacity int) *ClockCache {
	return &ClockCache{
		slots: make([]slot, capacity),
		index: make(map[primitives.PageKey]int, capacity),
	}
}

// Get returns the cached page for key and sets its reference bit.
func (c *ClockCache) Get(key primitives.PageKey) (page.Page, bool) {
	i, ok := c.index[key]
	if !ok {
		return nil, false
	}
	c.slots[i].ref = true
	return c.slots[i].page, true
}

// Peek returns the cached page without touching the reference bit. Used by
// flush/commit/abort walks so bookkeeping scans do not distort replacement.
func (c *ClockCache) Peek(key primitives.PageKey) (page.Page, bool) {
	i, ok := c.index[key]
	if !ok {
		return nil, false
	}
	return c.slots[i].page, true
}

// Put stores p under key, replacing an existing entry in place or filling
// the first empty slot. The caller must evict first when the cache is full.
func (c *ClockCache) Put(key primitives.PageKey, p page.Page) error {
	if i, ok := c.index[key]; ok {
		c.slots[i].page = p
		c.slots[i].ref = true
		return nil
	}

	for i := range c.slots {
		if c.slots[i].occupied {
			continue
		}
		c.slots[i] = slot{key: key, page: p, ref: true, occupied: true}
		c.index[key] = i
		return nil
	}

	return dberr.New(dberr.CategoryTransient, dberr.CodeAllPagesDirty,
		"no empty slot in buffer pool")
}

// Remove drops key's page from the cache, if present.
func (c *ClockCache) Remove(key primitives.PageKey) {
	i, ok := c.index[key]
	if !ok {
		return
	}
	c.slots[i] = slot{}
	delete(c.index, key)
}

// Size returns the number of occupied slots.
func (c *ClockCache) Size() int {
	return len(c.index)
}

// Capacity returns the fixed slot count.
func (c *ClockCache) Capacity() int {
	return len(c.slots)
}

// Keys returns the keys of all occupied slots.
func (c *ClockCache) Keys() []primitives.PageKey {
	out := make([]primitives.PageKey, 0, len(c.index))
	for k := range c.index {
		out = append(out, k)
	}
	return out
}

// Evict removes and returns one clean page chosen by the clock sweep.
//
// Dirty slots are never victims (NO-STEAL). The sweep starts at the hand:
// a dirty slot is skipped with its reference bit intact, a referenced clean
// slot loses its bit and is passed over once, and the first clean slot whose
// bit is already clear is evicted; the hand stays on the freed slot. If
// every occupied slot is dirty the sweep cannot terminate, so that is
// checked first and reported as an error.
func (c *ClockCache) Evict() (page.Page, error) {
	occupied, dirty := 0, 0
	for i := range c.slots {
		if !c.slots[i].occupied {
			continue
		}
		occupied++
		if c.slots[i].page.IsDirty() != nil {
			dirty++
		}
	}
	if occupied == 0 {
		return nil, dberr.New(dberr.CategoryTransient, dberr.CodeAllPagesDirty,
			"cannot evict from an empty pool")
	}
	if dirty == occupied {
		return nil, dberr.New(dberr.CategoryTransient, dberr.CodeAllPagesDirty,
			"all pages dirty")
	}

	k := c.hand
	for {
		s := &c.slots[k]
		switch {
		case !s.occupied:
			// fall through to advance
		case s.page.IsDirty() != nil:
			// NO-STEAL: skip without clearing the reference bit.
		case s.ref:
			s.ref = false
		default:
			victim := s.page
			delete(c.index, s.key)
			*s = slot{}
			c.hand = k
			return victim, nil
		}
		k = (k + 1) % len(c.slots)
	}
}
