package history

import (
	"encoding/csv"
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"arbfinder/internal/market"
)

// ErrNotEnoughData is returned when a chart would have no plottable series.
var ErrNotEnoughData = errors.New("not enough observations to chart")

var csvHeader = []string{"timestamp", "marketplace", "price", "shipping", "total_cost", "stock", "seller", "condition", "synthetic", "url"}

// WriteCSV writes observations in the order given.
func WriteCSV(w io.Writer, observations []market.PriceObservation) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, o := range observations {
		seller := ""
		if o.Seller != nil {
			seller = *o.Seller
		}
		synthetic := "false"
		if o.Synthetic {
			synthetic = "true"
		}
		record := []string{
			o.ObservedAt.UTC().Format(time.RFC3339),
			o.Marketplace.String(),
			o.Price.StringFixed(2),
			o.Shipping.StringFixed(2),
			o.TotalCost().StringFixed(2),
			o.Stock,
			seller,
			o.Condition,
			synthetic,
			o.URL,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// RenderChart draws total cost over time, one line per marketplace, as a PNG.
// Marketplaces with fewer than two observations are left out.
func RenderChart(w io.Writer, title string, observations []market.PriceObservation) error {
	series := make([]chart.Series, 0, len(market.All))
	var lo, hi decimal.Decimal
	first := true

	for _, m := range market.All {
		var x []time.Time
		var y []float64
		for _, o := range observations {
			if o.Marketplace != m {
				continue
			}
			total := o.TotalCost()
			x = append(x, o.ObservedAt)
			y = append(y, total.InexactFloat64())
			if first || total.LessThan(lo) {
				lo = total
			}
			if first || total.GreaterThan(hi) {
				hi = total
			}
			first = false
		}
		if len(x) < 2 {
			continue
		}
		series = append(series, chart.TimeSeries{Name: m.String(), XValues: x, YValues: y})
	}
	if len(series) == 0 {
		return ErrNotEnoughData
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "$%.2f")
	}
	graph := chart.Chart{
		Title:  title,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Total cost (USD)",
			ValueFormatter: priceFormatter,
			Range: &chart.ContinuousRange{
				Min: lo.InexactFloat64() - 1,
				Max: hi.InexactFloat64() + 1,
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}
