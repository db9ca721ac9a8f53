// Package catalog tracks the products being watched and maps monitor ids back to them.
package catalog

import (
	"errors"
	"sort"
	"sync"
	"time"

	"arbfinder/internal/market"
)

// ErrNotFound is returned when a product id is not tracked.
var ErrNotFound = errors.New("product not found")

// Catalog is safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]*market.Product
	monitors map[string]string // monitor id -> product id
}

// New constructs an empty catalog.
func New() *Catalog {
	return &Catalog{
		products: make(map[string]*market.Product),
		monitors: make(map[string]string),
	}
}

// Add stores p and indexes its monitor ids, replacing any product with the same id.
func (c *Catalog) Add(p market.Product) {
	stored := p.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.products[p.ID]; ok {
		c.unindexLocked(prev)
	}
	c.products[p.ID] = &stored
	for _, id := range stored.MonitorIDs {
		if id != "" {
			c.monitors[id] = stored.ID
		}
	}
}

// Get returns a copy of the product.
func (c *Catalog) Get(id string) (market.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return market.Product{}, ErrNotFound
	}
	return p.Clone(), nil
}

// Contains reports whether id is tracked.
func (c *Catalog) Contains(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.products[id]
	return ok
}

// List returns every product ordered by creation time.
func (c *Catalog) List() []market.Product {
	c.mu.RLock()
	out := make([]market.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p.Clone())
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// IDs returns the tracked product ids.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.products))
	for id := range c.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len reports the number of tracked products.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

// Remove stops tracking id and returns the removed product.
func (c *Catalog) Remove(id string) (market.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return market.Product{}, ErrNotFound
	}
	c.unindexLocked(p)
	delete(c.products, id)
	return p.Clone(), nil
}

// SetMonitor records the monitor id watching product id at marketplace m.
func (c *Catalog) SetMonitor(id string, m market.Marketplace, monitorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return ErrNotFound
	}
	if prev := p.MonitorIDs[m]; prev != "" {
		delete(c.monitors, prev)
	}
	if p.MonitorIDs == nil {
		p.MonitorIDs = make(map[market.Marketplace]string)
	}
	p.MonitorIDs[m] = monitorID
	if monitorID != "" {
		c.monitors[monitorID] = id
	}
	return nil
}

// ResolveMonitor maps a monitor id to the product it watches.
func (c *Catalog) ResolveMonitor(monitorID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.monitors[monitorID]
	return id, ok
}

// MarkScanned sets the last-scanned timestamp; unknown ids are ignored.
func (c *Catalog) MarkScanned(id string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.products[id]; ok {
		ts := at.UTC()
		p.LastScanned = &ts
	}
}

func (c *Catalog) unindexLocked(p *market.Product) {
	for _, mid := range p.MonitorIDs {
		if c.monitors[mid] == p.ID {
			delete(c.monitors, mid)
		}
	}
}
