package app

// DedupCache holds the composite keys already dispatched inside the open
// watermark window. A key in the cache is never alerted again.
//
// Not safe for concurrent use; the poll loop is its only owner.
type DedupCache struct {
	entries map[string]int64 // key -> trade timestamp
}

func NewDedupCache() *DedupCache {
	return &DedupCache{entries: make(map[string]int64)}
}

func (c *DedupCache) Contains(key string) bool {
	_, ok := c.entries[key]
	return ok
}

func (c *DedupCache) Add(key string, ts int64) {
	c.entries[key] = ts
}

// Prune drops entries older than cutoff and returns how many went.
// Anything that old is already covered by the watermark.
func (c *DedupCache) Prune(cutoff int64) int {
	removed := 0
	for k, ts := range c.entries {
		if ts < cutoff {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *DedupCache) Len() int {
	return len(c.entries)
}
