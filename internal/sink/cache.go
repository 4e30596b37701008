package sink

// identifierCache maps serialized identity keys to store-generated ids.
//
// Entries are immutable and permanent for the process lifetime: identifier
// rows are never updated or deleted, so a cached id cannot go stale. There
// is no eviction; the cache grows without bound as new identities appear.
//
// The cache is not self-locking. All access happens under the owning
// target's resolver lock, which also covers the select-or-insert round trip
// that produces new entries.
type identifierCache struct {
	entries map[string]int64
}

func newIdentifierCache() *identifierCache {
	return &identifierCache{
		entries: make(map[string]int64),
	}
}

// lookup returns the cached id for key, if present. Read-only.
func (c *identifierCache) lookup(key string) (int64, bool) {
	id, ok := c.entries[key]
	return id, ok
}

// insert stores key → id. Go strings are immutable, so the key is owned by
// the map entry without copying. Insertion cannot fail; if it ever could,
// a lost entry would only mean the next lookup repeats the slow path.
func (c *identifierCache) insert(key string, id int64) {
	c.entries[key] = id
}

// size returns the number of cached identifiers.
func (c *identifierCache) size() int {
	return len(c.entries)
}
