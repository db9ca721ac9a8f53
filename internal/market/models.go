package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceObservation is a single price/stock snapshot for a product at one marketplace.
// Observations are created once per successful fetch and never mutated.
type PriceObservation struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	Marketplace Marketplace     `json:"marketplace"`
	Price       decimal.Decimal `json:"price"`
	Shipping    decimal.Decimal `json:"shipping"`
	Stock       string          `json:"stock"`
	Seller      *string         `json:"seller,omitempty"`
	Condition   string          `json:"condition"`
	ObservedAt  time.Time       `json:"timestamp"`
	URL         string          `json:"url"`
	Synthetic   bool            `json:"synthetic,omitempty"`
}

// TotalCost is price plus shipping.
func (o PriceObservation) TotalCost() decimal.Decimal {
	return o.Price.Add(o.Shipping)
}

// Side describes one leg of an opportunity.
type Side struct {
	Marketplace Marketplace     `json:"marketplace"`
	Price       decimal.Decimal `json:"price"`
	Shipping    decimal.Decimal `json:"shipping"`
	URL         string          `json:"url"`
}

// TotalCost is price plus shipping.
func (s Side) TotalCost() decimal.Decimal {
	return s.Price.Add(s.Shipping)
}

// Opportunity is a buy-low/sell-high recommendation recomputed wholesale on every scan.
type Opportunity struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Buy           Side            `json:"buy"`
	Sell          Side            `json:"sell"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	EstimatedFees decimal.Decimal `json:"estimated_fees"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	MarginPct     decimal.Decimal `json:"margin_pct"`
	RiskScore     decimal.Decimal `json:"risk_score"`
	RiskFactors   []string        `json:"risk_factors"`
	StockStatus   string          `json:"stock_status"`
	LastUpdated   time.Time       `json:"last_updated"`
}

// Product is a tracked item listed on both marketplaces.
type Product struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Category    string                 `json:"category"`
	URLs        map[Marketplace]string `json:"urls"`
	MonitorIDs  map[Marketplace]string `json:"monitor_ids"`
	CreatedAt   time.Time              `json:"created_at"`
	LastScanned *time.Time             `json:"last_scanned,omitempty"`
}

// URL returns the product page for m.
func (p Product) URL(m Marketplace) string {
	return p.URLs[m]
}

// Clone returns a deep copy safe to hand out of a locked store.
func (p Product) Clone() Product {
	out := p
	out.URLs = make(map[Marketplace]string, len(p.URLs))
	for k, v := range p.URLs {
		out.URLs[k] = v
	}
	out.MonitorIDs = make(map[Marketplace]string, len(p.MonitorIDs))
	for k, v := range p.MonitorIDs {
		out.MonitorIDs[k] = v
	}
	if p.LastScanned != nil {
		ts := *p.LastScanned
		out.LastScanned = &ts
	}
	return out
}
