// Package memory holds the page cache and the page store that coordinates
// transactions over it.
package memory

import (
	"fmt"
	"sync"

	"kitedb/pkg/primitives"
	"kitedb/pkg/storage/page"
)

// PageCache stores resident pages in a bounded set of frames and picks
// eviction victims. It understands one thing about transactions: a dirty
// page belongs to an uncommitted writer and must never be a victim
// (NO-STEAL). Locks, logging and durability stay in the page store.
type PageCache interface {
	// Get returns the page and marks its frame referenced, giving it a
	// second chance against the next eviction sweep.
	Get(pid primitives.PageID) (page.Page, bool)

	// Peek returns the page without touching its reference bit. Flushes
	// and rollback scans use it so that inspecting a page doesn't shield
	// it from eviction.
	Peek(pid primitives.PageID) (page.Page, bool)

	// Put inserts or replaces the page. Inserting into a cache with no
	// free frame is an error; callers evict first.
	Put(pid primitives.PageID, p page.Page) error

	// Remove drops the page if present.
	Remove(pid primitives.PageID)

	// EvictOne removes one clean page chosen by the replacement policy
	// and returns its id. Returns false when every resident page is
	// dirty — the caller turns that into CacheFull.
	EvictOne() (primitives.PageID, bool)

	// Size returns the number of resident pages.
	Size() int

	// Clear drops every page.
	Clear()

	// GetAll returns the resident page ids in frame order.
	GetAll() []primitives.PageID
}

// frame is one slot of the clock. The reference bit is set on every hit and
// cleared as the hand sweeps past; a frame survives eviction as long as it
// was touched since the hand's last visit, or as long as its page is dirty.
type frame struct {
	pid        primitives.PageID
	page       page.Page
	referenced bool
	occupied   bool
}

// ClockPageCache is a fixed array of frames with a clock hand: a
// second-chance replacer. The hand sweeps frames circularly, clearing
// reference bits; the first unreferenced frame holding a clean page is the
// victim. Dirty frames are passed over no matter how stale, which is the
// NO-STEAL guarantee — when every frame is dirty there is no victim at all.
type ClockPageCache struct {
	frames []frame
	index  map[primitives.PageID]int
	hand   int
	used   int
	mutex  sync.RWMutex
}

func NewClockPageCache(maxSize int) *ClockPageCache {
	return &ClockPageCache{
		frames: make([]frame, maxSize),
		index:  make(map[primitives.PageID]int),
	}
}

func (c *ClockPageCache) advance() {
	c.hand = (c.hand + 1) % len(c.frames)
}

func (c *ClockPageCache) Get(pid primitives.PageID) (page.Page, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	i, ok := c.index[pid]
	if !ok {
		return nil, false
	}
	c.frames[i].referenced = true
	return c.frames[i].page, true
}

func (c *ClockPageCache) Peek(pid primitives.PageID) (page.Page, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	i, ok := c.index[pid]
	if !ok {
		return nil, false
	}
	return c.frames[i].page, true
}

func (c *ClockPageCache) Put(pid primitives.PageID, p page.Page) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if i, ok := c.index[pid]; ok {
		c.frames[i].page = p
		c.frames[i].referenced = true
		return nil
	}

	if c.used >= len(c.frames) {
		return fmt.Errorf("cache full, no free frame")
	}

	// Take the first free frame at or after the hand, so fresh admissions
	// land where the sweep just passed.
	i := c.hand
	for c.frames[i].occupied {
		i = (i + 1) % len(c.frames)
	}

	c.frames[i] = frame{pid: pid, page: p, referenced: true, occupied: true}
	c.index[pid] = i
	c.used++
	return nil
}

func (c *ClockPageCache) Remove(pid primitives.PageID) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.removeLocked(pid)
}

func (c *ClockPageCache) removeLocked(pid primitives.PageID) {
	i, ok := c.index[pid]
	if !ok {
		return
	}
	c.frames[i] = frame{}
	delete(c.index, pid)
	c.used--
}

func (c *ClockPageCache) EvictOne() (primitives.PageID, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.hasCleanFrame() {
		return nil, false
	}

	// A clean frame exists and nothing can set reference bits while we
	// hold the latch, so the sweep finds a victim within two revolutions.
	for {
		f := &c.frames[c.hand]
		if f.occupied {
			if f.referenced {
				f.referenced = false
			} else if f.page.IsDirty() == nil {
				pid := f.pid
				c.removeLocked(pid)
				c.advance()
				return pid, true
			}
		}
		c.advance()
	}
}

func (c *ClockPageCache) hasCleanFrame() bool {
	for i := range c.frames {
		if c.frames[i].occupied && c.frames[i].page.IsDirty() == nil {
			return true
		}
	}
	return false
}

func (c *ClockPageCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.used
}

func (c *ClockPageCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.frames = make([]frame, len(c.frames))
	c.index = make(map[primitives.PageID]int)
	c.hand = 0
	c.used = 0
}

func (c *ClockPageCache) GetAll() []primitives.PageID {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	pids := make([]primitives.PageID, 0, c.used)
	for i := range c.frames {
		if c.frames[i].occupied {
			pids = append(pids, c.frames[i].pid)
		}
	}
	return pids
}
