package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"arbfinder/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Logging      logging.Config     `mapstructure:"logging"`
	Server       ServerConfig       `mapstructure:"server"`
	Arbitrage    ArbitrageConfig    `mapstructure:"arbitrage"`
	Marketplaces MarketplacesConfig `mapstructure:"marketplaces"`
	History      HistoryConfig      `mapstructure:"history"`
	Scraper      ScraperConfig      `mapstructure:"scraper"`
	Monitor      MonitorConfig      `mapstructure:"monitor"`
	Scanner      ScannerConfig      `mapstructure:"scanner"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Alerting     AlertingConfig     `mapstructure:"alerting"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig covers the HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	PublicURL       string        `mapstructure:"public_url" validate:"omitempty,url"`
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// ArbitrageConfig holds the opportunity engine parameters, in percent.
type ArbitrageConfig struct {
	MinMarginPct   float64 `mapstructure:"min_margin_pct" validate:"gte=-100,lte=1000"`
	FeePct         float64 `mapstructure:"fee_pct" validate:"gte=0,lte=100"`
	FeeMarketplace string  `mapstructure:"fee_marketplace" validate:"oneof=amazon bestbuy"`
}

// MarketplacesConfig describes both marketplaces.
type MarketplacesConfig struct {
	Amazon  MarketplaceConfig `mapstructure:"amazon"`
	BestBuy MarketplaceConfig `mapstructure:"bestbuy"`
}

// MarketplaceConfig identifies a marketplace's URLs and first-party seller.
type MarketplaceConfig struct {
	Host             string `mapstructure:"host" validate:"required,hostname"`
	FirstPartySeller string `mapstructure:"first_party_seller"`
}

// HistoryConfig bounds the per-product price log.
type HistoryConfig struct {
	MaxEntries int `mapstructure:"max_entries" validate:"gt=0"`
}

// ScraperConfig covers the extract API used to fetch prices.
type ScraperConfig struct {
	BaseURL           string        `mapstructure:"base_url" validate:"required,url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	UserAgent         string        `mapstructure:"user_agent"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int           `mapstructure:"burst" validate:"gte=0"`
	DemoMode          bool          `mapstructure:"demo_mode"`
	DemoSeed          int64         `mapstructure:"demo_seed"`
}

// MonitorConfig covers the scouting API that watches product pages.
type MonitorConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	APIKey         string        `mapstructure:"api_key"`
	WebhookBaseURL string        `mapstructure:"webhook_base_url" validate:"omitempty,url"`
	Schedule       string        `mapstructure:"schedule"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// ScannerConfig tunes the scan coordinator.
type ScannerConfig struct {
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
	MaxConcurrent int64         `mapstructure:"max_concurrent" validate:"gt=0"`
}

// SchedulerConfig governs the periodic sweep.
type SchedulerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay" validate:"gte=0"`
}

// AlertingConfig defines alert thresholds and routing.
type AlertingConfig struct {
	Enabled      bool           `mapstructure:"enabled"`
	ThresholdPct float64        `mapstructure:"threshold_pct" validate:"gte=0"`
	Cooldown     time.Duration  `mapstructure:"cooldown" validate:"gte=0"`
	Channels     []string       `mapstructure:"channels"`
	Telegram     TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base" validate:"omitempty,url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"omitempty,startswith=/"`
}

// legacyEnv maps config keys to the unprefixed variable names older deployments export.
var legacyEnv = map[string]string{
	"scraper.api_key":          "MINO_API_KEY",
	"monitor.api_key":          "YUTORI_API_KEY",
	"monitor.webhook_base_url": "WEBHOOK_BASE_URL",
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARBFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		envKey := "ARBFINDER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "arbfinder")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.service", "arbfinder")

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.public_url", "http://localhost:8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("arbitrage.min_margin_pct", 5.0)
	v.SetDefault("arbitrage.fee_pct", 15.0)
	v.SetDefault("arbitrage.fee_marketplace", "amazon")

	v.SetDefault("marketplaces.amazon.host", "amazon.com")
	v.SetDefault("marketplaces.amazon.first_party_seller", "amazon.com")
	v.SetDefault("marketplaces.bestbuy.host", "bestbuy.com")
	v.SetDefault("marketplaces.bestbuy.first_party_seller", "best buy")

	v.SetDefault("history.max_entries", 100)

	v.SetDefault("scraper.base_url", "https://mino.ai/v1")
	v.SetDefault("scraper.timeout", "60s")
	v.SetDefault("scraper.user_agent", "arbfinder/1.0")
	v.SetDefault("scraper.requests_per_second", 2.0)
	v.SetDefault("scraper.burst", 2)
	v.SetDefault("scraper.demo_mode", false)
	v.SetDefault("scraper.demo_seed", 0)

	v.SetDefault("monitor.base_url", "https://api.yutori.com/v1")
	v.SetDefault("monitor.webhook_base_url", "http://localhost:8000")
	v.SetDefault("monitor.schedule", "hourly")
	v.SetDefault("monitor.timeout", "30s")

	v.SetDefault("scanner.fetch_timeout", "60s")
	v.SetDefault("scanner.max_concurrent", 4)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.threshold_pct", 15.0)
	v.SetDefault("alerting.cooldown", "6h")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.bot_token", "")
	v.SetDefault("alerting.telegram.chat_id", "")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate runs the struct tag rules and the cross-field checks.
func (c *Config) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	if strings.EqualFold(c.Marketplaces.Amazon.Host, c.Marketplaces.BestBuy.Host) {
		return fmt.Errorf("marketplaces.amazon.host and marketplaces.bestbuy.host must differ")
	}
	return nil
}
