package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"arbfinder/internal/catalog"
	"arbfinder/internal/engine"
	"arbfinder/internal/market"
	"arbfinder/internal/registry"
)

// ProductInput describes a product to start tracking.
type ProductInput struct {
	Name     string
	Category string
	URLs     map[market.Marketplace]string
}

// Stats is the aggregate view over tracked products and live opportunities.
type Stats struct {
	TotalProducts      int             `json:"total_products"`
	TotalOpportunities int             `json:"total_opportunities"`
	AverageMargin      decimal.Decimal `json:"average_margin_pct"`
	BestMargin         decimal.Decimal `json:"best_margin_pct"`
	LastUpdated        time.Time       `json:"last_updated"`
}

type forgetter interface {
	Forget(productID string)
}

// Track validates in, creates one monitor per marketplace, adds the product to the
// catalog and schedules its first scan. Monitor failures are logged and leave the
// product tracked without that monitor.
func (c *Coordinator) Track(ctx context.Context, in ProductInput) (market.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return market.Product{}, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}

	urls := make(map[market.Marketplace]string, len(market.All))
	for _, m := range market.All {
		raw := strings.TrimSpace(in.URLs[m])
		if raw == "" {
			return market.Product{}, fmt.Errorf("%w: %s url is required", ErrInvalidProduct, m)
		}
		detected, err := c.opts.Detector.Detect(raw)
		if err != nil {
			return market.Product{}, fmt.Errorf("%w: %s url: %v", ErrInvalidProduct, m, err)
		}
		if detected != m {
			return market.Product{}, fmt.Errorf("%w: %s url points at %s", ErrInvalidProduct, m, detected)
		}
		urls[m] = raw
	}

	product := market.Product{
		ID:         uuid.NewString(),
		Name:       name,
		Category:   strings.TrimSpace(in.Category),
		URLs:       urls,
		MonitorIDs: make(map[market.Marketplace]string, len(market.All)),
		CreatedAt:  c.now().UTC(),
	}

	if c.monitor != nil {
		for _, m := range market.All {
			id, err := c.monitor.Create(ctx, urls[m], fmt.Sprintf("%s - %s", name, m))
			if err != nil {
				c.logger.Error().Err(err).Str("product_id", product.ID).Str("marketplace", m.String()).Msg("failed to create monitor")
				continue
			}
			product.MonitorIDs[m] = id
		}
	}

	c.catalog.Add(product)
	c.metrics.SetTrackedProducts(c.catalog.Len())
	c.logger.Info().Str("product_id", product.ID).Str("name", product.Name).Msg("product tracked")

	c.Enqueue(product.ID)
	return product, nil
}

// Untrack removes the product together with its history, opportunity and monitors.
// An in-flight scan of the product is discarded at commit.
func (c *Coordinator) Untrack(ctx context.Context, productID string) error {
	unlock := c.commitLocks.Lock(productID)
	product, err := c.catalog.Remove(productID)
	if err != nil {
		unlock()
		if errors.Is(err, catalog.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		}
		return err
	}
	c.history.Remove(productID)
	c.registry.RemoveAllForProduct(productID)
	unlock()

	c.metrics.SetTrackedProducts(c.catalog.Len())
	c.metrics.SetOpportunities(c.registry.Len())
	if f, ok := c.notifier.(forgetter); ok {
		f.Forget(productID)
	}

	if c.monitor != nil {
		for m, id := range product.MonitorIDs {
			if id == "" {
				continue
			}
			if err := c.monitor.Delete(ctx, id); err != nil {
				c.logger.Warn().Err(err).Str("monitor_id", id).Str("marketplace", m.String()).Msg("failed to delete monitor")
			}
		}
	}

	c.logger.Info().Str("product_id", productID).Msg("product untracked")
	return nil
}

// Product returns a tracked product.
func (c *Coordinator) Product(productID string) (market.Product, error) {
	p, err := c.catalog.Get(productID)
	if errors.Is(err, catalog.ErrNotFound) {
		return market.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return p, err
}

// Products lists tracked products in creation order.
func (c *Coordinator) Products() []market.Product {
	return c.catalog.List()
}

// History returns up to limit of the most recent observations for a tracked product.
func (c *Coordinator) History(productID string, limit int) ([]market.PriceObservation, error) {
	if !c.catalog.Contains(productID) {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return c.history.List(productID, limit), nil
}

// Opportunities queries the registry.
func (c *Coordinator) Opportunities(f registry.Filter) []market.Opportunity {
	return c.registry.Query(f)
}

// Stats summarises the catalog and registry.
func (c *Coordinator) Stats() Stats {
	rs := c.registry.Stats()
	return Stats{
		TotalProducts:      c.catalog.Len(),
		TotalOpportunities: rs.Count,
		AverageMargin:      rs.AverageMargin,
		BestMargin:         rs.BestMargin,
		LastUpdated:        c.now().UTC(),
	}
}

// EngineConfig returns the arbitrage parameters scans evaluate with.
func (c *Coordinator) EngineConfig() engine.Config {
	return c.opts.Engine
}
