package sec

import "sync"

// TickerCache maps upper-case tickers to CIKs. Safe for concurrent use;
// stores are idempotent overwrites.
type TickerCache struct {
	mu   sync.RWMutex
	ciks map[string]string
}

// NewTickerCache creates an empty cache
func NewTickerCache() *TickerCache {
	return &TickerCache{ciks: make(map[string]string)}
}

// Lookup returns the CIK for an upper-case ticker
func (c *TickerCache) Lookup(ticker string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cik, ok := c.ciks[ticker]
	return cik, ok
}

// StoreAll records every mapping in entries
func (c *TickerCache) StoreAll(entries map[string]string) {
	c.mu.Lock()
	for t, cik := range entries {
		c.ciks[t] = cik
	}
	c.mu.Unlock()
}

// Len returns the number of cached tickers
func (c *TickerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ciks)
}
