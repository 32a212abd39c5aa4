package extraction

import (
	"sync"
	"time"

	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

type cachedRecord struct {
	record    types.ExtractionRecord
	expiresAt time.Time
}

type recordCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cachedRecord
}

// newRecordCache returns nil when ttl disables caching; a nil cache misses on
// every lookup.
func newRecordCache(ttl time.Duration) *recordCache {
	if ttl <= 0 {
		return nil
	}
	return &recordCache{
		ttl:     ttl,
		entries: make(map[string]cachedRecord),
	}
}

func (c *recordCache) get(key string, now time.Time) (types.ExtractionRecord, bool) {
	if c == nil {
		return types.ExtractionRecord{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return types.ExtractionRecord{}, false
	}
	if entry.expiresAt.After(now) {
		return entry.record, true
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return types.ExtractionRecord{}, false
}

func (c *recordCache) put(key string, rec types.ExtractionRecord, now time.Time) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries[key] = cachedRecord{record: rec, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
}
