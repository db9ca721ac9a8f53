package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"arbfinder/internal/app"
)

var (
	showServer    string
	showMinMargin string
	showMaxRisk   string
	showLimit     int
	showTimeout   time.Duration
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display live opportunities from a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit < 0 {
			return fmt.Errorf("--limit cannot be negative")
		}

		opts := app.ShowOptions{
			Server:    showServer,
			MinMargin: showMinMargin,
			MaxRisk:   showMaxRisk,
			Limit:     showLimit,
			Timeout:   showTimeout,
		}

		return getApp().Show(cmd.Context(), opts, cmd.OutOrStdout())
	},
}

func init() {
	showCmd.Flags().StringVar(&showServer, "server", "", "Server base URL (defaults to server.public_url)")
	showCmd.Flags().StringVar(&showMinMargin, "min-margin", "", "Minimum margin percent")
	showCmd.Flags().StringVar(&showMaxRisk, "max-risk", "", "Maximum risk score")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of opportunities to display (0 for all)")
	showCmd.Flags().DurationVar(&showTimeout, "timeout", 10*time.Second, "Request timeout")
}
