package engine

import (
	"strings"

	"github.com/shopspring/decimal"

	"arbfinder/internal/market"
)

// Risk factor labels, listed in evaluation order.
const (
	FactorOutOfStock    = "Buy source out of stock"
	FactorLowStock      = "Low stock at buy source"
	FactorThirdParty    = "Third-party seller"
	FactorHighMargin    = "Unusually high margin - verify prices"
	FactorThinMargin    = "Thin margin - price sensitive"
	FactorShippingCosts = "Shipping costs reduce margin"
)

var (
	baseRisk = decimal.RequireFromString("5.0")
	maxRisk  = decimal.NewFromInt(10)

	penaltyOutOfStock = decimal.RequireFromString("3.0")
	penaltyLowStock   = decimal.RequireFromString("1.5")
	penaltyThirdParty = decimal.RequireFromString("1.0")
	penaltyHighMargin = decimal.RequireFromString("2.0")
	penaltyThinMargin = decimal.RequireFromString("1.0")
	penaltyShipping   = decimal.RequireFromString("0.5")

	highMarginPct = decimal.NewFromInt(50)
	thinMarginPct = decimal.NewFromInt(10)
)

// ScoreRisk rates a buy-side observation on a 0-10 scale (lower is safer) and returns the
// matched factor labels in evaluation order. firstParty maps each marketplace to the seller
// name that counts as the marketplace itself.
func ScoreRisk(buy market.PriceObservation, marginPct decimal.Decimal, firstParty map[market.Marketplace]string) (decimal.Decimal, []string) {
	score := baseRisk
	factors := make([]string, 0, 5)

	stock := strings.ToLower(buy.Stock)
	switch {
	case strings.Contains(stock, "out of stock") || strings.Contains(stock, "unavailable"):
		score = score.Add(penaltyOutOfStock)
		factors = append(factors, FactorOutOfStock)
	case strings.Contains(stock, "low") || strings.Contains(stock, "only"):
		score = score.Add(penaltyLowStock)
		factors = append(factors, FactorLowStock)
	}

	if seller := sellerName(buy); seller != "" && !strings.EqualFold(seller, firstParty[buy.Marketplace]) {
		score = score.Add(penaltyThirdParty)
		factors = append(factors, FactorThirdParty)
	}

	if marginPct.GreaterThan(highMarginPct) {
		score = score.Add(penaltyHighMargin)
		factors = append(factors, FactorHighMargin)
	}
	if marginPct.LessThan(thinMarginPct) {
		score = score.Add(penaltyThinMargin)
		factors = append(factors, FactorThinMargin)
	}

	if buy.Shipping.IsPositive() {
		score = score.Add(penaltyShipping)
		factors = append(factors, FactorShippingCosts)
	}

	if score.GreaterThan(maxRisk) {
		score = maxRisk
	}
	if score.IsNegative() {
		score = decimal.Zero
	}
	return score.Round(1), factors
}
