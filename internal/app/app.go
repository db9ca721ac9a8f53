package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"arbfinder/internal/alerting"
	"arbfinder/internal/catalog"
	"arbfinder/internal/config"
	"arbfinder/internal/engine"
	"arbfinder/internal/fetcher"
	"arbfinder/internal/history"
	"arbfinder/internal/market"
	"arbfinder/internal/metrics"
	"arbfinder/internal/monitor"
	"arbfinder/internal/registry"
	"arbfinder/internal/scanner"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) engineConfig() (engine.Config, error) {
	feeMarket, err := market.Parse(a.Config.Arbitrage.FeeMarketplace)
	if err != nil {
		return engine.Config{}, fmt.Errorf("arbitrage.fee_marketplace: %w", err)
	}
	return engine.Config{
		MinMarginPct:   decimal.NewFromFloat(a.Config.Arbitrage.MinMarginPct),
		FeePct:         decimal.NewFromFloat(a.Config.Arbitrage.FeePct),
		FeeMarketplace: feeMarket,
		FirstPartySellers: map[market.Marketplace]string{
			market.Amazon:  a.Config.Marketplaces.Amazon.FirstPartySeller,
			market.BestBuy: a.Config.Marketplaces.BestBuy.FirstPartySeller,
		},
	}, nil
}

func (a *App) detector() *market.Detector {
	return market.NewDetector(map[market.Marketplace]string{
		market.Amazon:  a.Config.Marketplaces.Amazon.Host,
		market.BestBuy: a.Config.Marketplaces.BestBuy.Host,
	})
}

func (a *App) newFetcher() fetcher.PriceFetcher {
	cfg := a.Config.Scraper
	if cfg.DemoMode {
		seed := cfg.DemoSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		a.Logger.Warn().Msg("scraper.demo_mode enabled; prices are synthetic")
		return fetcher.NewSynthetic(a.detector(), seed, a.Logger)
	}
	if cfg.APIKey == "" {
		a.Logger.Warn().Msg("scraper.api_key not configured; price fetches will be rejected upstream")
	}
	return fetcher.NewScraper(fetcher.ScraperOptions{
		BaseURL:           cfg.BaseURL,
		APIKey:            cfg.APIKey,
		Timeout:           cfg.Timeout,
		UserAgent:         cfg.UserAgent,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		Detector:          a.detector(),
	}, a.Logger)
}

func (a *App) newMonitor() monitor.Monitor {
	cfg := a.Config.Monitor
	if cfg.APIKey == "" {
		a.Logger.Warn().Msg("monitor.api_key not configured; using local monitor ids")
		return monitor.NewLocal(a.Logger)
	}
	return monitor.NewClient(monitor.ClientOptions{
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		WebhookBaseURL: cfg.WebhookBaseURL,
		Schedule:       cfg.Schedule,
		Timeout:        cfg.Timeout,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	cfg := a.Config.Alerting.Telegram
	if !cfg.Enabled {
		a.Logger.Warn().Msg("alerting enabled without any channel; alerts disabled")
		return nil
	}
	telegram := alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
	return alerting.NewThrottle(
		telegram,
		decimal.NewFromFloat(a.Config.Alerting.ThresholdPct),
		a.Config.Alerting.Cooldown,
		a.Config.Alerting.Channels,
	)
}

func (a *App) newMetrics() *metrics.Recorder {
	if !a.Config.Metrics.Enabled {
		return nil
	}
	return metrics.New()
}

// newCoordinator wires the in-memory stores and collaborators into a scan coordinator.
func (a *App) newCoordinator(f fetcher.PriceFetcher, mon monitor.Monitor, notifier alerting.Notifier, rec *metrics.Recorder) (*scanner.Coordinator, error) {
	engineCfg, err := a.engineConfig()
	if err != nil {
		return nil, err
	}
	deps := scanner.Dependencies{
		Catalog:  catalog.New(),
		History:  history.NewStore(a.Config.History.MaxEntries),
		Registry: registry.New(engineCfg.MinMarginPct),
		Fetcher:  f,
		Monitor:  mon,
		Notifier: notifier,
		Metrics:  rec,
	}
	opts := scanner.Options{
		Engine:        engineCfg,
		FetchTimeout:  a.Config.Scanner.FetchTimeout,
		MaxConcurrent: a.Config.Scanner.MaxConcurrent,
		Detector:      a.detector(),
	}
	return scanner.New(deps, opts, a.Logger), nil
}

// EvaluateOptions describe a hypothetical pair of listings.
type EvaluateOptions struct {
	Name            string
	AmazonPrice     decimal.Decimal
	AmazonShipping  decimal.Decimal
	AmazonSeller    string
	BestBuyPrice    decimal.Decimal
	BestBuyShipping decimal.Decimal
	BestBuySeller   string
	Stock           string
	Notify          bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Server    string
	MinMargin string
	MaxRisk   string
	Limit     int
	Timeout   time.Duration
}

// ExportOptions select the product history to download.
type ExportOptions struct {
	Server    string
	ProductID string
	CSVPath   string
	PNGPath   string
	Limit     int
	Timeout   time.Duration
}

// CheckOptions configure the connectivity check.
type CheckOptions struct {
	AmazonURL  string
	BestBuyURL string
}
