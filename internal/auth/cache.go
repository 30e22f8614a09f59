package auth

import (
	"fmt"
	"sync"
	"time"
)

// PermissionCache memoizes CheckPermission results per (user, space,
// permission) tuple for a short TTL, avoiding an Authenticator
// reader-lock round trip on every check_permission call in the hot
// query path. Entries are invalidated eagerly on grant/revoke rather
// than waiting out their TTL.
type PermissionCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	allowed   bool
	expiresAt time.Time
}

// NewPermissionCache creates a cache with the given TTL. A zero TTL
// disables caching: Get always misses and Put is a no-op.
func NewPermissionCache(ttl time.Duration) *PermissionCache {
	return &PermissionCache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

func cacheKey(username string, space int64, perm Permission) string {
	return fmt.Sprintf("%s\x00%d\x00%s", username, space, perm)
}

// Get returns the cached permission decision, if present and not
// expired.
func (c *PermissionCache) Get(username string, space int64, perm Permission) (allowed bool, ok bool) {
	if c.ttl <= 0 {
		return false, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.entries[cacheKey(username, space, perm)]
	if !found || time.Now().After(e.expiresAt) {
		return false, false
	}
	return e.allowed, true
}

// Put records a permission decision, to expire after the cache's TTL.
func (c *PermissionCache) Put(username string, space int64, perm Permission, allowed bool) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(username, space, perm)] = cacheEntry{allowed: allowed, expiresAt: time.Now().Add(c.ttl)}
}

// InvalidateUser drops every cached decision for username, called
// whenever a role grant or revoke could change the answer.
func (c *PermissionCache) InvalidateUser(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := username + "\x00"
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
}
