// Package cache holds resolved secret values for the lifetime of a resolver.
//
// Entries are insert-once: the first value stored for an address wins and
// is never replaced, expired or evicted. Blank values are never stored, and
// there is no negative caching, so a missing secret is looked up again on
// every request.
package cache

import (
	"sort"
	"strings"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a concurrent address -> value map. The zero value is not usable;
// create one with New.
type Cache struct {
	items *gocache.Cache
}

// New returns an empty cache. No janitor goroutine is started because
// entries never expire.
func New() *Cache {
	return &Cache{
		items: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get returns the value stored for address.
func (c *Cache) Get(address string) (string, bool) {
	v, ok := c.items.Get(address)
	if !ok {
		return "", false
	}
	value, ok := v.(string)
	return value, ok
}

// Put stores value for address unless an entry already exists or value is
// blank. It reports whether the value was inserted.
func (c *Cache) Put(address, value string) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}
	// Add fails when the key is present, which gives first-writer-wins.
	return c.items.Add(address, value, gocache.NoExpiration) == nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}

// Addresses returns the cached addresses in sorted order. Values are not
// exposed.
func (c *Cache) Addresses() []string {
	items := c.items.Items()
	addresses := make([]string, 0, len(items))
	for k := range items {
		addresses = append(addresses, k)
	}
	sort.Strings(addresses)
	return addresses
}
