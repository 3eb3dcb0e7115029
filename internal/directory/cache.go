package directory

import (
	"sync"
	"time"
)

// DefaultCacheTTL bounds read staleness for cached directory entries.
const DefaultCacheTTL = 30 * time.Second

// CachedStore wraps a Store with a process-local TTL read cache for user
// entries. Every write through this wrapper invalidates the affected user's
// cache slot, so read-after-write from the same process is always fresh.
// Other processes keep independent caches: cross-process reads may be stale
// for up to the TTL.
type CachedStore struct {
	inner Store
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]cachedEntry
}

type cachedEntry struct {
	entry     Entry
	expiresAt time.Time
}

// CacheOption configures a CachedStore.
type CacheOption func(*CachedStore)

// WithClock overrides the cache's time source (for tests).
func WithClock(now func() time.Time) CacheOption {
	return func(c *CachedStore) {
		c.now = now
	}
}

// WithTTL sets the cache TTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CachedStore) {
		c.ttl = ttl
	}
}

// NewCachedStore wraps inner with a read cache.
func NewCachedStore(inner Store, opts ...CacheOption) *CachedStore {
	c := &CachedStore{
		inner:   inner,
		ttl:     DefaultCacheTTL,
		now:     time.Now,
		entries: make(map[string]cachedEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetUser serves from the cache while fresh, refilling from the inner store
// on miss or expiry. Only found entries are cached.
func (c *CachedStore) GetUser(userID string) (*Entry, error) {
	c.mu.Lock()
	if cached, ok := c.entries[userID]; ok && c.now().Before(cached.expiresAt) {
		entry := cached.entry // copy
		c.mu.Unlock()
		return &entry, nil
	}
	c.mu.Unlock()

	entry, err := c.inner.GetUser(userID)
	if err != nil || entry == nil {
		return entry, err
	}

	c.mu.Lock()
	c.entries[userID] = cachedEntry{entry: *entry, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return entry, nil
}

func (c *CachedStore) invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// UpsertUser writes through and invalidates the user's cache slot.
func (c *CachedStore) UpsertUser(userID string, partial Entry) (*Entry, error) {
	c.invalidate(userID)
	return c.inner.UpsertUser(userID, partial)
}

// AddBackingStore writes through and invalidates the user's cache slot.
func (c *CachedStore) AddBackingStore(userID string, store BackingStore) (*Entry, error) {
	c.invalidate(userID)
	return c.inner.AddBackingStore(userID, store)
}

// RemoveBackingStore writes through and invalidates the user's cache slot.
func (c *CachedStore) RemoveBackingStore(userID, storeName string) (*Entry, error) {
	c.invalidate(userID)
	return c.inner.RemoveBackingStore(userID, storeName)
}

// SetStoreStatus writes through and invalidates the user's cache slot.
func (c *CachedStore) SetStoreStatus(userID, storeName string, status StoreStatus) error {
	c.invalidate(userID)
	return c.inner.SetStoreStatus(userID, storeName, status)
}

// DeleteUser writes through and invalidates the user's cache slot.
func (c *CachedStore) DeleteUser(userID string) error {
	c.invalidate(userID)
	return c.inner.DeleteUser(userID)
}

// AppendAudit passes through; audit entries are never cached.
func (c *CachedStore) AppendAudit(entry AuditEntry) (*AuditEntry, error) {
	return c.inner.AppendAudit(entry)
}

// GetAudit passes through.
func (c *CachedStore) GetAudit(userID string, limit int) ([]AuditEntry, error) {
	return c.inner.GetAudit(userID, limit)
}

// GetAllAudit passes through.
func (c *CachedStore) GetAllAudit(limit int) ([]AuditEntry, error) {
	return c.inner.GetAllAudit(limit)
}

// PruneAudit passes through.
func (c *CachedStore) PruneAudit(olderThan time.Duration) error {
	return c.inner.PruneAudit(olderThan)
}
