package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"arbfinder/internal/alerting"
	"arbfinder/internal/fetcher"
	"arbfinder/internal/market"
	"arbfinder/internal/scanner"
)

const (
	sampleAmazonURL  = "https://www.amazon.com/dp/EVALUATE"
	sampleBestBuyURL = "https://www.bestbuy.com/site/evaluate.p"
)

// Evaluate runs one scan over hand-entered listings and prints the outcome. With Notify set
// a resulting opportunity is pushed through the configured alert channels.
func (a *App) Evaluate(ctx context.Context, opts EvaluateOptions, out io.Writer) error {
	var notifier alerting.Notifier
	if opts.Notify {
		if notifier = a.newNotifier(); notifier == nil {
			return errors.New("no alert channel configured")
		}
	}

	quotes := &staticFetcher{
		detector: a.detector(),
		quotes: map[market.Marketplace]staticQuote{
			market.Amazon:  {price: opts.AmazonPrice, shipping: opts.AmazonShipping, seller: opts.AmazonSeller, stock: opts.Stock},
			market.BestBuy: {price: opts.BestBuyPrice, shipping: opts.BestBuyShipping, seller: opts.BestBuySeller, stock: opts.Stock},
		},
	}

	coord, err := a.newCoordinator(quotes, nil, notifier, nil)
	if err != nil {
		return err
	}
	defer coord.Shutdown(context.Background())

	name := opts.Name
	if name == "" {
		name = "Evaluated product"
	}
	product, err := coord.Track(ctx, scanner.ProductInput{
		Name: name,
		URLs: map[market.Marketplace]string{
			market.Amazon:  a.sampleURL(market.Amazon),
			market.BestBuy: a.sampleURL(market.BestBuy),
		},
	})
	if err != nil {
		return err
	}

	res, err := coord.Scan(ctx, product.ID)
	if err != nil {
		return err
	}
	return writeEvaluation(out, res, coord.EngineConfig().MinMarginPct)
}

// sampleURL builds a product URL on the configured marketplace host.
func (a *App) sampleURL(m market.Marketplace) string {
	host := a.Config.Marketplaces.Amazon.Host
	path, fallback := "/dp/EVALUATE", sampleAmazonURL
	if m == market.BestBuy {
		host = a.Config.Marketplaces.BestBuy.Host
		path, fallback = "/site/evaluate.p", sampleBestBuyURL
	}
	if host == "" {
		return fallback
	}
	return "https://www." + strings.TrimPrefix(host, "www.") + path
}

func writeEvaluation(out io.Writer, res scanner.Result, minMargin decimal.Decimal) error {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(writer, "Marketplace\tPrice\tShipping\tTotal\tSeller\tStock")
	for _, o := range res.Observations {
		seller := ""
		if o.Seller != nil {
			seller = *o.Seller
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			o.Marketplace,
			o.Price.StringFixed(2),
			o.Shipping.StringFixed(2),
			o.TotalCost().StringFixed(2),
			seller,
			o.Stock,
		)
	}
	fmt.Fprintln(writer)

	opp := res.Opportunity
	if opp == nil {
		fmt.Fprintf(writer, "No opportunity (minimum margin %s%%)\n", minMargin.StringFixed(2))
		return writer.Flush()
	}

	fmt.Fprintf(writer, "Buy\t%s @ %s\n", opp.Buy.Marketplace, opp.Buy.TotalCost().StringFixed(2))
	fmt.Fprintf(writer, "Sell\t%s @ %s\n", opp.Sell.Marketplace, opp.Sell.Price.StringFixed(2))
	fmt.Fprintf(writer, "Gross profit\t%s\n", opp.GrossProfit.StringFixed(2))
	fmt.Fprintf(writer, "Fees\t%s\n", opp.EstimatedFees.StringFixed(2))
	fmt.Fprintf(writer, "Net profit\t%s\n", opp.NetProfit.StringFixed(2))
	fmt.Fprintf(writer, "Margin\t%s%%\n", opp.MarginPct.StringFixed(2))
	fmt.Fprintf(writer, "Risk\t%s\t%s\n", opp.RiskScore.StringFixed(1), strings.Join(opp.RiskFactors, "; "))
	return writer.Flush()
}

type staticQuote struct {
	price    decimal.Decimal
	shipping decimal.Decimal
	seller   string
	stock    string
}

// staticFetcher answers every fetch with a fixed quote for the URL's marketplace.
type staticFetcher struct {
	detector *market.Detector
	quotes   map[market.Marketplace]staticQuote
}

func (s *staticFetcher) Fetch(_ context.Context, url, productID string) (market.PriceObservation, error) {
	m, err := s.detector.Detect(url)
	if err != nil {
		return market.PriceObservation{}, err
	}
	q := s.quotes[m]
	obs := market.PriceObservation{
		ID:          uuid.NewString(),
		ProductID:   productID,
		Marketplace: m,
		Price:       q.price,
		Shipping:    q.shipping,
		Stock:       q.stock,
		Condition:   "new",
		ObservedAt:  time.Now().UTC(),
		URL:         url,
	}
	if q.seller != "" {
		seller := q.seller
		obs.Seller = &seller
	}
	return obs, nil
}

var _ fetcher.PriceFetcher = (*staticFetcher)(nil)
