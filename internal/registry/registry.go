// Package registry holds the current arbitrage opportunities, at most one per product.
package registry

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"arbfinder/internal/market"
)

// Filter narrows a Query. A nil MinMargin falls back to the registry default;
// a nil MaxRisk applies no risk bound.
type Filter struct {
	MinMargin *decimal.Decimal
	MaxRisk   *decimal.Decimal
}

// Stats aggregates the live opportunities.
type Stats struct {
	Count         int
	AverageMargin decimal.Decimal
	BestMargin    decimal.Decimal
}

type entry struct {
	opp market.Opportunity
	seq uint64
}

// Registry is safe for concurrent use. Upsert is the only way to change an entry.
type Registry struct {
	defaultMinMargin decimal.Decimal

	mu      sync.RWMutex
	entries map[string]entry
	seq     uint64
}

// New constructs an empty registry whose queries default to minMargin.
func New(minMargin decimal.Decimal) *Registry {
	return &Registry{defaultMinMargin: minMargin, entries: make(map[string]entry)}
}

// Upsert replaces whatever is stored for productID with opp, or clears it when opp is nil.
func (r *Registry) Upsert(productID string, opp *market.Opportunity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, productID)
	if opp == nil {
		return
	}
	r.seq++
	stored := cloneOpportunity(*opp)
	stored.ProductID = productID
	r.entries[productID] = entry{opp: stored, seq: r.seq}
}

// RemoveAllForProduct drops the opportunity for productID, if any.
func (r *Registry) RemoveAllForProduct(productID string) {
	r.Upsert(productID, nil)
}

// Get returns the live opportunity for productID.
func (r *Registry) Get(productID string) (market.Opportunity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[productID]
	if !ok {
		return market.Opportunity{}, false
	}
	return cloneOpportunity(e.opp), true
}

// Len reports the number of live opportunities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Query returns the opportunities matching f sorted by margin descending, most recently
// updated first on equal margin.
func (r *Registry) Query(f Filter) []market.Opportunity {
	minMargin := r.defaultMinMargin
	if f.MinMargin != nil {
		minMargin = *f.MinMargin
	}

	r.mu.RLock()
	matched := make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.opp.MarginPct.LessThan(minMargin) {
			continue
		}
		if f.MaxRisk != nil && e.opp.RiskScore.GreaterThan(*f.MaxRisk) {
			continue
		}
		matched = append(matched, e)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if c := a.opp.MarginPct.Cmp(b.opp.MarginPct); c != 0 {
			return c > 0
		}
		if !a.opp.LastUpdated.Equal(b.opp.LastUpdated) {
			return a.opp.LastUpdated.After(b.opp.LastUpdated)
		}
		return a.seq > b.seq
	})

	out := make([]market.Opportunity, len(matched))
	for i, e := range matched {
		out[i] = cloneOpportunity(e.opp)
	}
	return out
}

// Stats summarises every live opportunity regardless of filters.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := Stats{Count: len(r.entries), AverageMargin: decimal.Zero, BestMargin: decimal.Zero}
	if st.Count == 0 {
		return st
	}
	sum := decimal.Zero
	first := true
	for _, e := range r.entries {
		sum = sum.Add(e.opp.MarginPct)
		if first || e.opp.MarginPct.GreaterThan(st.BestMargin) {
			st.BestMargin = e.opp.MarginPct
			first = false
		}
	}
	st.AverageMargin = sum.Div(decimal.NewFromInt(int64(st.Count))).Round(2)
	st.BestMargin = st.BestMargin.Round(2)
	return st
}

func cloneOpportunity(o market.Opportunity) market.Opportunity {
	if o.RiskFactors != nil {
		factors := make([]string, len(o.RiskFactors))
		copy(factors, o.RiskFactors)
		o.RiskFactors = factors
	}
	return o
}
