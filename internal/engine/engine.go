// Package engine computes cross-marketplace arbitrage opportunities from a pair of
// same-scan price observations. It performs no I/O and holds no state.
package engine

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"arbfinder/internal/market"
)

var hundred = decimal.NewFromInt(100)

// Config carries the arbitrage parameters injected by the caller.
type Config struct {
	MinMarginPct      decimal.Decimal
	FeePct            decimal.Decimal
	FeeMarketplace    market.Marketplace
	FirstPartySellers map[market.Marketplace]string
	Now               func() time.Time
}

// DefaultConfig mirrors the shipped defaults: 5% minimum margin, 15% fee when selling on Amazon.
func DefaultConfig() Config {
	return Config{
		MinMarginPct:   decimal.NewFromInt(5),
		FeePct:         decimal.NewFromInt(15),
		FeeMarketplace: market.Amazon,
		FirstPartySellers: map[market.Marketplace]string{
			market.Amazon:  "amazon.com",
			market.BestBuy: "best buy",
		},
	}
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

// Evaluate returns the opportunity implied by obsA and obsB, or nil when the pair is invalid
// or the margin falls below cfg.MinMarginPct. The observations may be passed in either order
// but must cover both marketplaces.
//
// The side with the lower total cost is bought. On equal total cost marketplace A (Amazon)
// is the buy side.
func Evaluate(productID, productName string, obsA, obsB market.PriceObservation, cfg Config) *market.Opportunity {
	if obsA.Marketplace == market.BestBuy && obsB.Marketplace == market.Amazon {
		obsA, obsB = obsB, obsA
	}
	if obsA.Marketplace != market.Amazon || obsB.Marketplace != market.BestBuy {
		return nil
	}
	if !validObservation(obsA) || !validObservation(obsB) {
		return nil
	}

	buy, sell := obsA, obsB
	if obsB.TotalCost().LessThan(obsA.TotalCost()) {
		buy, sell = obsB, obsA
	}

	fees := decimal.Zero
	if sell.Marketplace == cfg.FeeMarketplace {
		fees = sell.Price.Mul(cfg.FeePct).Div(hundred)
	}

	buyTotal := buy.TotalCost()
	gross := sell.Price.Sub(buyTotal)
	net := gross.Sub(fees)
	margin := net.Div(buyTotal).Mul(hundred)

	if margin.LessThan(cfg.MinMarginPct) {
		return nil
	}

	score, factors := ScoreRisk(buy, margin, cfg.FirstPartySellers)

	return &market.Opportunity{
		ID:          uuid.NewString(),
		ProductID:   productID,
		ProductName: productName,
		Buy: market.Side{
			Marketplace: buy.Marketplace,
			Price:       buy.Price,
			Shipping:    buy.Shipping,
			URL:         buy.URL,
		},
		Sell: market.Side{
			Marketplace: sell.Marketplace,
			Price:       sell.Price,
			Shipping:    sell.Shipping,
			URL:         sell.URL,
		},
		GrossProfit:   gross.Round(2),
		EstimatedFees: fees.Round(2),
		NetProfit:     net.Round(2),
		MarginPct:     margin.Round(2),
		RiskScore:     score,
		RiskFactors:   factors,
		StockStatus:   buy.Stock,
		LastUpdated:   cfg.now(),
	}
}

// validObservation rejects negative amounts and non-positive total cost.
func validObservation(o market.PriceObservation) bool {
	if o.Price.IsNegative() || o.Shipping.IsNegative() {
		return false
	}
	return o.TotalCost().IsPositive()
}

func sellerName(o market.PriceObservation) string {
	if o.Seller == nil {
		return ""
	}
	return strings.TrimSpace(*o.Seller)
}
