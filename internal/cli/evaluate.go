package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"arbfinder/internal/app"
)

var (
	evalName            string
	evalAmazonPrice     string
	evalAmazonShipping  string
	evalAmazonSeller    string
	evalBestBuyPrice    string
	evalBestBuyShipping string
	evalBestBuySeller   string
	evalStock           string
	evalNotify          bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compute the opportunity for a pair of listings",
	RunE: func(cmd *cobra.Command, args []string) error {
		amounts := make(map[string]decimal.Decimal, 4)
		for flag, raw := range map[string]string{
			"amazon-price":     evalAmazonPrice,
			"amazon-shipping":  evalAmazonShipping,
			"bestbuy-price":    evalBestBuyPrice,
			"bestbuy-shipping": evalBestBuyShipping,
		} {
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return fmt.Errorf("invalid --%s value %q", flag, raw)
			}
			amounts[flag] = d
		}

		opts := app.EvaluateOptions{
			Name:            evalName,
			AmazonPrice:     amounts["amazon-price"],
			AmazonShipping:  amounts["amazon-shipping"],
			AmazonSeller:    evalAmazonSeller,
			BestBuyPrice:    amounts["bestbuy-price"],
			BestBuyShipping: amounts["bestbuy-shipping"],
			BestBuySeller:   evalBestBuySeller,
			Stock:           evalStock,
			Notify:          evalNotify,
		}

		return getApp().Evaluate(cmd.Context(), opts, cmd.OutOrStdout())
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evalName, "name", "", "Product name used in output and alerts")
	evaluateCmd.Flags().StringVar(&evalAmazonPrice, "amazon-price", "", "Amazon item price")
	evaluateCmd.Flags().StringVar(&evalAmazonShipping, "amazon-shipping", "0", "Amazon shipping cost")
	evaluateCmd.Flags().StringVar(&evalAmazonSeller, "amazon-seller", "", "Amazon seller name")
	evaluateCmd.Flags().StringVar(&evalBestBuyPrice, "bestbuy-price", "", "Best Buy item price")
	evaluateCmd.Flags().StringVar(&evalBestBuyShipping, "bestbuy-shipping", "0", "Best Buy shipping cost")
	evaluateCmd.Flags().StringVar(&evalBestBuySeller, "bestbuy-seller", "", "Best Buy seller name")
	evaluateCmd.Flags().StringVar(&evalStock, "stock", "In Stock", "Stock status applied to both listings")
	evaluateCmd.Flags().BoolVar(&evalNotify, "notify", false, "Send the resulting opportunity through configured alert channels")

	_ = evaluateCmd.MarkFlagRequired("amazon-price")
	_ = evaluateCmd.MarkFlagRequired("bestbuy-price")
}
