package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"arbfinder/internal/market"
)

const (
	extractPath      = "/extract"
	defaultBaseURL   = "https://mino.ai/v1"
	defaultCondition = "new"
)

var amountPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ScraperOptions parameterise the extract API client.
type ScraperOptions struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
	Detector          *market.Detector
}

// Scraper extracts structured price data from marketplace pages through a hosted
// browser-agent API.
type Scraper struct {
	opts     ScraperOptions
	logger   zerolog.Logger
	client   *http.Client
	limiter  *rate.Limiter
	detector *market.Detector
	baseURL  string
	now      func() time.Time
}

// NewScraper constructs a scraper.
func NewScraper(opts ScraperOptions, logger zerolog.Logger) *Scraper {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	detector := opts.Detector
	if detector == nil {
		detector = market.NewDetector(nil)
	}

	return &Scraper{
		opts:     opts,
		logger:   logger.With().Str("component", "scraper").Logger(),
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(limit, burst),
		detector: detector,
		baseURL:  baseURL,
		now:      time.Now,
	}
}

// Fetch scrapes url and returns the observation for productID.
func (s *Scraper) Fetch(ctx context.Context, url, productID string) (market.PriceObservation, error) {
	if s.opts.APIKey == "" {
		return market.PriceObservation{}, errors.New("scraper api key not configured")
	}

	marketplace, err := s.detector.Detect(url)
	if err != nil {
		return market.PriceObservation{}, err
	}

	body, err := json.Marshal(extractRequest{
		URL:     url,
		Schema:  extractionSchema(marketplace),
		WaitFor: "networkidle",
	})
	if err != nil {
		return market.PriceObservation{}, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return market.PriceObservation{}, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+extractPath, bytes.NewReader(body))
	if err != nil {
		return market.PriceObservation{}, err
	}
	req.Header.Set("Authorization", "Bearer "+s.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(s.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "arbfinder/1.0")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return market.PriceObservation{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return market.PriceObservation{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return market.PriceObservation{}, parseHTTPError(resp.StatusCode, payload)
	}

	var res extractResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return market.PriceObservation{}, fmt.Errorf("decode extract response: %w", err)
	}

	price, ok, err := parseAmount(res.Price)
	if err != nil {
		return market.PriceObservation{}, fmt.Errorf("parse price: %w", err)
	}
	if !ok || !price.IsPositive() {
		return market.PriceObservation{}, fmt.Errorf("%w: %s", ErrInvalidPrice, strings.TrimSpace(string(res.Price)))
	}

	shipping, _, err := parseAmount(res.Shipping)
	if err != nil {
		return market.PriceObservation{}, fmt.Errorf("parse shipping: %w", err)
	}

	stock := strings.TrimSpace(res.Stock)
	if stock == "" {
		stock = "unknown"
	}
	condition := strings.TrimSpace(res.Condition)
	if condition == "" {
		condition = defaultCondition
	}

	obs := market.PriceObservation{
		ID:          uuid.NewString(),
		ProductID:   productID,
		Marketplace: marketplace,
		Price:       price,
		Shipping:    shipping,
		Stock:       stock,
		Condition:   condition,
		ObservedAt:  s.now().UTC(),
		URL:         url,
	}
	if seller := strings.TrimSpace(res.Seller); seller != "" {
		obs.Seller = &seller
	}

	s.logger.Debug().
		Str("product_id", productID).
		Str("marketplace", marketplace.String()).
		Str("price", price.String()).
		Msg("price extracted")

	return obs, nil
}

// parseAmount accepts a JSON number or a free-form string such as "$4.99" or "FREE".
// A missing or null value reports ok=false.
func parseAmount(raw json.RawMessage) (decimal.Decimal, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return decimal.Zero, false, nil
	}

	if trimmed[0] != '"' {
		d, err := decimal.NewFromString(string(trimmed))
		if err != nil {
			return decimal.Zero, false, err
		}
		return d, true, nil
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return decimal.Zero, false, err
	}
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return decimal.Zero, false, nil
	}
	if strings.Contains(text, "free") {
		return decimal.Zero, true, nil
	}
	match := amountPattern.FindString(strings.ReplaceAll(text, ",", ""))
	if match == "" {
		return decimal.Zero, false, nil
	}
	d, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}

func extractionSchema(m market.Marketplace) map[string]schemaField {
	seller := "Seller name (e.g., 'Amazon.com' or third-party seller)"
	stock := "Stock availability status"
	if m == market.BestBuy {
		seller = "Always 'Best Buy' for bestbuy.com"
		stock = "Stock availability (In Stock, Out of Stock, etc.)"
	}
	return map[string]schemaField{
		"price":    {Type: "number", Description: "The main product price in USD, without currency symbol"},
		"shipping": {Type: "string", Description: "Shipping cost or 'FREE' if free shipping"},
		"stock":    {Type: "string", Description: stock},
		"seller":   {Type: "string", Description: seller},
	}
}

type schemaField struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type extractRequest struct {
	URL     string                 `json:"url"`
	Schema  map[string]schemaField `json:"schema"`
	WaitFor string                 `json:"wait_for"`
}

type extractResponse struct {
	Price     json.RawMessage `json:"price"`
	Shipping  json.RawMessage `json:"shipping"`
	Stock     string          `json:"stock"`
	Seller    string          `json:"seller"`
	Condition string          `json:"condition"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Detail != "" {
			return fmt.Errorf("extract api error (%d): %s", status, apiErr.Detail)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("extract api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("extract api error (%d): %s", status, apiErr.Error)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("extract api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("extract api error (%d)", status)
}

var _ PriceFetcher = (*Scraper)(nil)
