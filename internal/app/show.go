package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"arbfinder/internal/market"
)

// Show prints the opportunities a running server currently reports.
func (a *App) Show(ctx context.Context, opts ShowOptions, out io.Writer) error {
	query := url.Values{}
	if opts.MinMargin != "" {
		query.Set("min_margin", opts.MinMargin)
	}
	if opts.MaxRisk != "" {
		query.Set("max_risk", opts.MaxRisk)
	}
	endpoint := a.serverURL(opts.Server) + "/opportunities"
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	body, err := serverGet(ctx, endpoint, opts.Timeout)
	if err != nil {
		return err
	}

	var opps []market.Opportunity
	if err := json.Unmarshal(body, &opps); err != nil {
		return fmt.Errorf("decode opportunities: %w", err)
	}
	if opts.Limit > 0 && len(opps) > opts.Limit {
		opps = opps[:opts.Limit]
	}
	if len(opps) == 0 {
		fmt.Fprintln(out, "no opportunities found")
		return nil
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Product\tBuy\tSell\tNet\tMargin%\tRisk\tStock\tUpdated (UTC)")

	for _, o := range opps {
		fmt.Fprintf(
			writer,
			"%s\t%s @ %s\t%s @ %s\t%s\t%s\t%s\t%s\t%s\n",
			sanitizeInline(o.ProductName),
			o.Buy.Marketplace,
			o.Buy.TotalCost().StringFixed(2),
			o.Sell.Marketplace,
			o.Sell.Price.StringFixed(2),
			o.NetProfit.StringFixed(2),
			o.MarginPct.StringFixed(2),
			o.RiskScore.StringFixed(1),
			o.StockStatus,
			o.LastUpdated.UTC().Format(time.RFC3339),
		)
	}

	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
