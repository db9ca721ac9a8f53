package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"

	"arbfinder/internal/fetcher"
	"arbfinder/internal/market"
	"arbfinder/internal/monitor"
)

const (
	defaultCheckAmazonURL  = "https://www.amazon.com/dp/B0B2MMTFH7"
	defaultCheckBestBuyURL = "https://www.bestbuy.com/site/6525844.p"
)

// Check verifies the monitor and scraper credentials by listing monitors and fetching one
// product page per marketplace.
func (a *App) Check(ctx context.Context, opts CheckOptions, out io.Writer) error {
	urls := map[market.Marketplace]string{
		market.Amazon:  opts.AmazonURL,
		market.BestBuy: opts.BestBuyURL,
	}
	if urls[market.Amazon] == "" {
		urls[market.Amazon] = defaultCheckAmazonURL
	}
	if urls[market.BestBuy] == "" {
		urls[market.BestBuy] = defaultCheckBestBuyURL
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Check\tResult\tDetail")

	var failed []string

	mon := a.newMonitor()
	scouts, err := mon.List(ctx)
	switch {
	case err != nil:
		failed = append(failed, "monitor")
		fmt.Fprintf(writer, "monitor\tFAIL\t%s\n", sanitizeInline(err.Error()))
	default:
		detail := fmt.Sprintf("%d monitors", len(scouts))
		if _, local := mon.(*monitor.Local); local {
			detail += " (local, no api key)"
		}
		fmt.Fprintf(writer, "monitor\tOK\t%s\n", detail)
	}

	f := a.newFetcher()
	_, synthetic := f.(*fetcher.Synthetic)
	productID := uuid.NewString()
	for _, m := range market.All {
		obs, err := f.Fetch(ctx, urls[m], productID)
		if err != nil {
			failed = append(failed, m.String())
			fmt.Fprintf(writer, "%s\tFAIL\t%s\n", m, sanitizeInline(err.Error()))
			continue
		}
		detail := fmt.Sprintf("price %s, shipping %s, %s", obs.Price.StringFixed(2), obs.Shipping.StringFixed(2), obs.Stock)
		if synthetic {
			detail += " (synthetic)"
		}
		fmt.Fprintf(writer, "%s\tOK\t%s\n", m, detail)
	}

	if err := writer.Flush(); err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("connectivity check failed: %v", failed)
	}
	return nil
}
