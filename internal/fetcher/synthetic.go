package fetcher

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"arbfinder/internal/market"
)

// Synthetic produces random prices for demos. Every observation it returns has
// Synthetic set so downstream consumers can tell it apart from scraped data.
type Synthetic struct {
	detector *market.Detector
	logger   zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynthetic builds a demo fetcher seeded with seed.
func NewSynthetic(detector *market.Detector, seed int64, logger zerolog.Logger) *Synthetic {
	if detector == nil {
		detector = market.NewDetector(nil)
	}
	return &Synthetic{
		detector: detector,
		logger:   logger.With().Str("component", "synthetic_fetcher").Logger(),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Fetch returns a random price between $20 and $100 with free shipping.
func (s *Synthetic) Fetch(ctx context.Context, url, productID string) (market.PriceObservation, error) {
	if err := ctx.Err(); err != nil {
		return market.PriceObservation{}, err
	}
	marketplace, err := s.detector.Detect(url)
	if err != nil {
		return market.PriceObservation{}, err
	}

	s.mu.Lock()
	cents := 2000 + s.rng.Int63n(8001)
	s.mu.Unlock()

	seller := "Synthetic Seller"
	obs := market.PriceObservation{
		ID:          uuid.NewString(),
		ProductID:   productID,
		Marketplace: marketplace,
		Price:       decimal.New(cents, -2),
		Shipping:    decimal.Zero,
		Stock:       "In Stock",
		Seller:      &seller,
		Condition:   defaultCondition,
		ObservedAt:  time.Now().UTC(),
		URL:         url,
		Synthetic:   true,
	}
	s.logger.Debug().Str("product_id", productID).Str("marketplace", marketplace.String()).Msg("synthetic price generated")
	return obs, nil
}

var _ PriceFetcher = (*Synthetic)(nil)
