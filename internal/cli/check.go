package cli

import (
	"github.com/spf13/cobra"

	"arbfinder/internal/app"
)

var (
	checkAmazonURL  string
	checkBestBuyURL string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify scraper and monitor API connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.CheckOptions{
			AmazonURL:  checkAmazonURL,
			BestBuyURL: checkBestBuyURL,
		}
		return getApp().Check(cmd.Context(), opts, cmd.OutOrStdout())
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkAmazonURL, "amazon-url", "", "Amazon product page to fetch")
	checkCmd.Flags().StringVar(&checkBestBuyURL, "bestbuy-url", "", "Best Buy product page to fetch")
}
