package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"arbfinder/internal/market"
)

func sellerPtr(s string) *string { return &s }

func TestScoreRiskAllFactorsClampsAtTen(t *testing.T) {
	buy := obs(market.BestBuy, "50", "5")
	buy.Stock = "Currently Out of Stock"
	buy.Seller = sellerPtr("Joe's Deals")

	score, factors := ScoreRisk(buy, dec("85.45"), DefaultConfig().FirstPartySellers)

	assert.True(t, score.Equal(decimal.NewFromInt(10)), "score %s", score)
	assert.Equal(t, []string{FactorOutOfStock, FactorThirdParty, FactorHighMargin, FactorShippingCosts}, factors)
}

func TestScoreRiskLowStockAndThinMargin(t *testing.T) {
	buy := obs(market.Amazon, "100", "0")
	buy.Stock = "Only 2 left in stock"
	buy.Seller = sellerPtr("Amazon.com")

	score, factors := ScoreRisk(buy, dec("8"), DefaultConfig().FirstPartySellers)

	assert.True(t, score.Equal(dec("7.5")), "score %s", score)
	assert.Equal(t, []string{FactorLowStock, FactorThinMargin}, factors)
}

func TestScoreRiskStockCheckIsExclusive(t *testing.T) {
	buy := obs(market.Amazon, "100", "0")
	buy.Stock = "Unavailable - only ships later"

	score, factors := ScoreRisk(buy, dec("20"), nil)

	assert.True(t, score.Equal(dec("8")), "score %s", score)
	assert.Equal(t, []string{FactorOutOfStock}, factors)
}

func TestScoreRiskFirstPartySellerPerMarketplace(t *testing.T) {
	firstParty := DefaultConfig().FirstPartySellers

	buy := obs(market.BestBuy, "100", "0")
	buy.Seller = sellerPtr("Best Buy")
	_, factors := ScoreRisk(buy, dec("20"), firstParty)
	assert.Empty(t, factors)

	buy.Seller = sellerPtr("Amazon.com")
	_, factors = ScoreRisk(buy, dec("20"), firstParty)
	assert.Equal(t, []string{FactorThirdParty}, factors)

	buy.Seller = sellerPtr("   ")
	_, factors = ScoreRisk(buy, dec("20"), firstParty)
	assert.Empty(t, factors)
}

func TestScoreRiskBaseline(t *testing.T) {
	score, factors := ScoreRisk(obs(market.Amazon, "100", "0"), dec("25"), nil)
	assert.True(t, score.Equal(dec("5")))
	assert.Empty(t, factors)
}
