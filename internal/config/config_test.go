package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "arbfinder", cfg.App.Name)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, 5.0, cfg.Arbitrage.MinMarginPct)
	assert.Equal(t, 15.0, cfg.Arbitrage.FeePct)
	assert.Equal(t, "amazon", cfg.Arbitrage.FeeMarketplace)
	assert.Equal(t, 100, cfg.History.MaxEntries)
	assert.Equal(t, "best buy", cfg.Marketplaces.BestBuy.FirstPartySeller)
	assert.Equal(t, 60*time.Second, cfg.Scanner.FetchTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Scraper.DemoMode)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ARBFINDER_ARBITRAGE_FEE_PCT", "12.5")
	t.Setenv("ARBFINDER_SCANNER_FETCH_TIMEOUT", "5s")
	t.Setenv("MINO_API_KEY", "legacy-key")
	t.Setenv("ARBFINDER_MONITOR_API_KEY", "scout-key")

	cfg, err := Load(writeConfig(t, "app:\n  environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, 12.5, cfg.Arbitrage.FeePct)
	assert.Equal(t, 5*time.Second, cfg.Scanner.FetchTimeout)
	assert.Equal(t, "legacy-key", cfg.Scraper.APIKey)
	assert.Equal(t, "scout-key", cfg.Monitor.APIKey)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
arbitrage:
  min_margin_pct: 8
  fee_marketplace: bestbuy
server:
  cors_origins: "http://a.test,http://b.test"
scheduler:
  enabled: true
  interval: 30m
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8.0, cfg.Arbitrage.MinMarginPct)
	assert.Equal(t, "bestbuy", cfg.Arbitrage.FeeMarketplace)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"fee over 100":          "arbitrage:\n  fee_pct: 150\n",
		"unknown fee market":    "arbitrage:\n  fee_marketplace: ebay\n",
		"zero history":          "history:\n  max_entries: 0\n",
		"telegram no token":     "alerting:\n  telegram:\n    enabled: true\n    chat_id: \"1\"\n",
		"same marketplace host": "marketplaces:\n  bestbuy:\n    host: amazon.com\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
