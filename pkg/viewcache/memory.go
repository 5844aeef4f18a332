package viewcache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process Cache, SessionTracker and ViewerCounter for
// tests and cache-less deployments. Entries expire lazily on access and in a
// background sweep.
type MemoryCache struct {
	mu       sync.Mutex
	entries  map[string]time.Time // dedup key -> expiry
	sessions map[string]sessionEntry
	viewers  map[string]viewerEntry
	ttl      time.Duration
	stop     chan struct{}
	done     chan struct{}
	closed   bool
}

type sessionEntry struct {
	tenantKey string
	expiry    time.Time
}

type viewerEntry struct {
	count  int64
	expiry time.Time
}

// NewInMemory returns an in-process cache with the given marker TTL.
// Non-positive TTLs fall back to DefaultTTL.
func NewInMemory(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &MemoryCache{
		entries:  make(map[string]time.Time),
		sessions: make(map[string]sessionEntry),
		viewers:  make(map[string]viewerEntry),
		ttl:      ttl,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.sweep()
	return c
}

func (c *MemoryCache) CheckAndMark(ctx context.Context, sessionID, productID string) (bool, error) {
	key := dedupKey(sessionID, productID)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	expiry, exists := c.entries[key]
	if exists && now.Before(expiry) {
		return true, nil
	}
	c.entries[key] = now.Add(c.ttl)
	return false, nil
}

// MarkSession associates a visitor session with a storefront, refreshing the
// TTL window on every call.
func (c *MemoryCache) MarkSession(ctx context.Context, sessionID, tenantKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessions[sessionKey(sessionID)] = sessionEntry{
		tenantKey: tenantKey,
		expiry:    time.Now().Add(c.ttl),
	}
	return nil
}

// Session returns the storefront a visitor session was last seen on, or an
// empty string when the marker expired.
func (c *MemoryCache) Session(ctx context.Context, sessionID string) (string, error) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.sessions[sessionKey(sessionID)]
	if !exists || now.After(entry.expiry) {
		return "", nil
	}
	return entry.tenantKey, nil
}

// IncrementActiveViewers bumps the per-product viewer counter and refreshes
// its window, matching the Redis INCR+EXPIRE semantics: the count resets when
// no views arrive within the window.
func (c *MemoryCache) IncrementActiveViewers(ctx context.Context, productID string) (int64, error) {
	key := viewersKey(productID)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.viewers[key]
	if now.After(entry.expiry) {
		entry.count = 0
	}
	entry.count++
	entry.expiry = now.Add(ActiveViewerWindow)
	c.viewers[key] = entry

	return entry.count, nil
}

// ActiveViewers returns the current viewer count for a product, zero when the
// window has lapsed.
func (c *MemoryCache) ActiveViewers(ctx context.Context, productID string) (int64, error) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.viewers[viewersKey(productID)]
	if !exists || now.After(entry.expiry) {
		return 0, nil
	}
	return entry.count, nil
}

func (c *MemoryCache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) removeExpired() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, expiry := range c.entries {
		if now.After(expiry) {
			delete(c.entries, key)
		}
	}
	for key, entry := range c.sessions {
		if now.After(entry.expiry) {
			delete(c.sessions, key)
		}
	}
	for key, entry := range c.viewers {
		if now.After(entry.expiry) {
			delete(c.viewers, key)
		}
	}
}

// Flush drops all markers. Used by tests to simulate cache loss; the durable
// uniqueness constraint must still prevent double counting afterwards.
func (c *MemoryCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	clear(c.sessions)
	clear(c.viewers)
}

// Close stops the sweep goroutine. Safe for repeated calls.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stop)
	<-c.done
	return nil
}
