// Package history keeps a bounded in-memory log of price observations per product.
package history

import (
	"sync"

	"arbfinder/internal/market"
)

// DefaultCapacity is the number of observations retained per product.
const DefaultCapacity = 100

// Store holds the most recent observations per product across both marketplaces,
// evicting the oldest entry first once a product reaches capacity. Each product's log
// has its own lock; the map itself is guarded separately so unrelated products never
// contend on writes.
type Store struct {
	capacity int

	mu     sync.RWMutex
	series map[string]*series
}

type series struct {
	mu      sync.Mutex
	entries []market.PriceObservation
}

// NewStore constructs a Store; capacity <= 0 selects DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity, series: make(map[string]*series)}
}

// Capacity reports the per-product retention cap.
func (s *Store) Capacity() int {
	return s.capacity
}

func (s *Store) get(productID string) *series {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.series[productID]
}

func (s *Store) getOrCreate(productID string) *series {
	if sr := s.get(productID); sr != nil {
		return sr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sr, ok := s.series[productID]
	if !ok {
		sr = &series{entries: make([]market.PriceObservation, 0, 8)}
		s.series[productID] = sr
	}
	return sr
}

// Append records observations for productID in order and enforces the retention cap.
func (s *Store) Append(productID string, observations ...market.PriceObservation) {
	if len(observations) == 0 {
		return
	}
	sr := s.getOrCreate(productID)

	sr.mu.Lock()
	defer sr.mu.Unlock()

	sr.entries = append(sr.entries, observations...)
	if overflow := len(sr.entries) - s.capacity; overflow > 0 {
		trimmed := make([]market.PriceObservation, s.capacity)
		copy(trimmed, sr.entries[overflow:])
		sr.entries = trimmed
	}
}

// List returns up to limit of the most recent observations in chronological order.
// limit <= 0 returns everything retained.
func (s *Store) List(productID string, limit int) []market.PriceObservation {
	sr := s.get(productID)
	if sr == nil {
		return []market.PriceObservation{}
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	start := 0
	if limit > 0 && len(sr.entries) > limit {
		start = len(sr.entries) - limit
	}
	out := make([]market.PriceObservation, len(sr.entries)-start)
	copy(out, sr.entries[start:])
	return out
}

// Latest returns the newest observation for productID at marketplace m.
func (s *Store) Latest(productID string, m market.Marketplace) (market.PriceObservation, bool) {
	sr := s.get(productID)
	if sr == nil {
		return market.PriceObservation{}, false
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	for i := len(sr.entries) - 1; i >= 0; i-- {
		if sr.entries[i].Marketplace == m {
			return sr.entries[i], true
		}
	}
	return market.PriceObservation{}, false
}

// Len reports how many observations are retained for productID.
func (s *Store) Len(productID string) int {
	sr := s.get(productID)
	if sr == nil {
		return 0
	}
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return len(sr.entries)
}

// Remove drops the whole log for productID.
func (s *Store) Remove(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.series, productID)
}
