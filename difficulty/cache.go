// Package difficulty holds the per-height difficulty history and the
// DifficultyChecker contract the sync consumer calls before accepting a
// candidate suffix.
package difficulty

import "sync"

// Info is one height's worth of difficulty history.
type Info struct {
	Height     uint64
	Timestamp  int64
	Difficulty uint64
}

// Cache is a height-indexed store of Info entries. It mirrors the stored
// block range exactly: spec invariant I5 requires that after a successful
// commit at height H, the cache holds exactly one entry per stored block
// height and nothing else.
type Cache struct {
	mu      sync.RWMutex
	entries map[uint64]Info
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[uint64]Info)}
}

// Insert adds or overwrites the entry for info.Height.
func (c *Cache) Insert(info Info) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[info.Height] = info
}

// Remove deletes the entry at height, if any.
func (c *Cache) Remove(height uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, height)
}

// Get returns the entry at height.
func (c *Cache) Get(height uint64) (Info, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.entries[height]
	return info, ok
}

// Size returns the number of entries currently cached.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RecentWindow returns up to n entries with height <= uptoHeight, sorted
// ascending by height, most recent last. Missing heights are simply
// skipped; callers relying on a contiguous window should ensure the cache
// was populated for the whole range.
func (c *Cache) RecentWindow(uptoHeight uint64, n int) []Info {
	c.mu.RLock()
	defer c.mu.RUnlock()

	window := make([]Info, 0, n)
	for h := uptoHeight; h > 0 && len(window) < n; h-- {
		if info, ok := c.entries[h]; ok {
			window = append(window, info)
		}
	}
	// reverse into ascending order
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}
	return window
}

// snapshotUpTo returns a copy of every entry with height <= uptoHeight,
// keyed by height. Used by Delta to seed its overlay's read-through base.
func (c *Cache) snapshotUpTo(uptoHeight uint64) map[uint64]Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[uint64]Info, len(c.entries))
	for h, info := range c.entries {
		if h <= uptoHeight {
			out[h] = info
		}
	}
	return out
}

// Delta is a staged, discardable view over a Cache: inserts and removals
// are held in an overlay until Commit, mirroring state.Delta's copy-on-
// write discipline so a failed sync attempt cannot leave the difficulty
// cache mutated (spec invariant I6).
type Delta struct {
	base    *Cache
	baseline map[uint64]Info
	inserts map[uint64]Info
	removed map[uint64]struct{}
	closed  bool
}

// NewDelta opens a staged view over c, seeded with every entry at or
// below uptoHeight so RecentWindow lookups within the delta see history
// preceding the attempt without touching entries a concurrent reader
// might still be observing on c.
func (c *Cache) NewDelta(uptoHeight uint64) *Delta {
	return &Delta{
		base:    c,
		baseline: c.snapshotUpTo(uptoHeight),
		inserts: make(map[uint64]Info),
		removed: make(map[uint64]struct{}),
	}
}

func (d *Delta) checkOpen() {
	if d.closed {
		panic("difficulty: delta used after Commit or Discard")
	}
}

// Insert stages info for later commit.
func (d *Delta) Insert(info Info) {
	d.checkOpen()
	d.inserts[info.Height] = info
	delete(d.removed, info.Height)
}

// Remove stages a removal for later commit.
func (d *Delta) Remove(height uint64) {
	d.checkOpen()
	delete(d.inserts, height)
	d.removed[height] = struct{}{}
}

// Get resolves height against the overlay, falling back to the delta's
// baseline snapshot.
func (d *Delta) Get(height uint64) (Info, bool) {
	d.checkOpen()
	if _, ok := d.removed[height]; ok {
		return Info{}, false
	}
	if info, ok := d.inserts[height]; ok {
		return info, true
	}
	info, ok := d.baseline[height]
	return info, ok
}

// RecentWindow is Cache.RecentWindow's delta-aware counterpart.
func (d *Delta) RecentWindow(uptoHeight uint64, n int) []Info {
	d.checkOpen()
	window := make([]Info, 0, n)
	for h := uptoHeight; h > 0 && len(window) < n; h-- {
		if info, ok := d.Get(h); ok {
			window = append(window, info)
		}
	}
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}
	return window
}

// Commit applies every staged insert and removal to the underlying Cache
// and closes the delta.
func (d *Delta) Commit() {
	d.checkOpen()
	for h := range d.removed {
		d.base.Remove(h)
	}
	for _, info := range d.inserts {
		d.base.Insert(info)
	}
	d.closed = true
}

// Discard closes the delta without applying any staged change.
func (d *Delta) Discard() {
	d.checkOpen()
	d.closed = true
}
