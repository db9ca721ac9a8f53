package fetcher

import (
	"context"
	"errors"

	"arbfinder/internal/market"
)

// ErrInvalidPrice marks a response that parsed but carried no usable price.
var ErrInvalidPrice = errors.New("invalid price")

// PriceFetcher retrieves a single price observation for a product page.
// Any returned error means "no observation this round".
type PriceFetcher interface {
	Fetch(ctx context.Context, url, productID string) (market.PriceObservation, error)
}
