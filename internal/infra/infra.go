// Package infra provides shared infrastructure components used across
// the application: the quote cache, upstream throttling and connectivity
// probes.
package infra

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/seenimoa/marketpulse/pkg/models"
)

// DefaultFreshness is how long a cached quote may be served without a fetch.
const DefaultFreshness = 30 * time.Second

// --- Quote cache ---

// CacheEntry holds a cached quote with the moment it was stored.
type CacheEntry struct {
	Quote     models.Quote
	FetchedAt int64 // epoch milliseconds
}

// IsFresh reports whether the entry is younger than window at now.
// An entry exactly window old is stale.
func (e CacheEntry) IsFresh(now time.Time, window time.Duration) bool {
	return now.UnixMilli()-e.FetchedAt < window.Milliseconds()
}

// Age returns how long ago the entry was stored.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return time.Duration(now.UnixMilli()-e.FetchedAt) * time.Millisecond
}

// QuoteCache is a thread-safe in-memory map of symbol to last quote.
// Entries never expire on their own; freshness is checked by the reader.
type QuoteCache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
}

// NewQuoteCache creates an empty cache.
func NewQuoteCache() *QuoteCache {
	return &QuoteCache{entries: make(map[string]CacheEntry)}
}

// Get retrieves the cached quote for symbol regardless of age.
func (c *QuoteCache) Get(symbol string) (models.Quote, bool) {
	e, ok := c.Entry(symbol)
	return e.Quote, ok
}

// Entry retrieves the full cache entry for symbol.
func (c *QuoteCache) Entry(symbol string) (CacheEntry, bool) {
	c.mu.RLock()
	e, ok := c.entries[symbol]
	c.mu.RUnlock()
	return e, ok
}

// Put stores q under symbol, replacing any previous entry.
func (c *QuoteCache) Put(symbol string, q models.Quote, at time.Time) {
	c.mu.Lock()
	c.entries[symbol] = CacheEntry{Quote: q, FetchedAt: at.UnixMilli()}
	c.mu.Unlock()
}

// Evict removes symbol from the cache.
func (c *QuoteCache) Evict(symbol string) {
	c.mu.Lock()
	delete(c.entries, symbol)
	c.mu.Unlock()
}

// EvictMany removes every listed symbol under a single lock.
func (c *QuoteCache) EvictMany(symbols []string) {
	c.mu.Lock()
	for _, s := range symbols {
		delete(c.entries, s)
	}
	c.mu.Unlock()
}

// Clear removes all entries from the cache.
func (c *QuoteCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]CacheEntry)
	c.mu.Unlock()
}

// Len returns the number of cached symbols.
func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// --- Rate limiter ---

// NewRateLimiter creates a token bucket allowing perSecond requests with the
// given burst. A non-positive rate disables throttling.
func NewRateLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
