package cli

import (
	"time"

	"github.com/spf13/cobra"

	"arbfinder/internal/app"
)

var (
	exportServer    string
	exportProductID string
	exportPNGPath   string
	exportCSVPath   string
	exportLimit     int
	exportTimeout   time.Duration
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a product's price history as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			Server:    exportServer,
			ProductID: exportProductID,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			Limit:     exportLimit,
			Timeout:   exportTimeout,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportServer, "server", "", "Server base URL (defaults to server.public_url)")
	exportCmd.Flags().StringVar(&exportProductID, "product", "", "Product id")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "Most recent observations to export (defaults to the server's limit)")
	exportCmd.Flags().DurationVar(&exportTimeout, "timeout", 30*time.Second, "Request timeout")
}
