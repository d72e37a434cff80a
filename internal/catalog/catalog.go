// Package catalog exposes the read-only gift catalog. The catalog is owned
// by an external commerce system; this process only looks entries up, it
// never prices or mutates them.
package catalog

import (
	"strings"
	"sync"

	"github.com/berrylive/live-service/internal/domain"
)

// Catalog resolves gift names to their catalog entries.
type Catalog interface {
	Lookup(name string) (domain.GiftCatalogEntry, bool)
	All() []domain.GiftCatalogEntry
}

type memoryCatalog struct {
	mu      sync.RWMutex
	entries map[string]domain.GiftCatalogEntry
	order   []string
}

// NewMemory builds a catalog from a seeded entry list, typically loaded
// from configuration at startup.
func NewMemory(entries []domain.GiftCatalogEntry) Catalog {
	c := &memoryCatalog{entries: make(map[string]domain.GiftCatalogEntry, len(entries))}
	for _, e := range entries {
		key := normalize(e.Name)
		if _, ok := c.entries[key]; !ok {
			c.order = append(c.order, key)
		}
		c.entries[key] = e
	}
	return c
}

func (c *memoryCatalog) Lookup(name string) (domain.GiftCatalogEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[normalize(name)]
	return e, ok
}

func (c *memoryCatalog) All() []domain.GiftCatalogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.GiftCatalogEntry, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.entries[key])
	}
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DefaultEntries is the fallback catalog used when configuration does not
// provide one.
func DefaultEntries() []domain.GiftCatalogEntry {
	return []domain.GiftCatalogEntry{
		{Name: "rose", Price: 1},
		{Name: "heart", Price: 5},
		{Name: "perfume", Price: 20},
		{Name: "teddy", Price: 99},
		{Name: "sports-car", Price: 1200, TriggersAutoFollow: true},
		{Name: "castle", Price: 20000, TriggersAutoFollow: true},
		{Name: "lion", Price: 29999, TriggersAutoFollow: true},
	}
}
