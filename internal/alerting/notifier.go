package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"arbfinder/internal/market"
)

// Notification wraps an opportunity worth telling someone about.
type Notification struct {
	Opportunity   market.Opportunity
	ThresholdPct  string
	Channels      []string
	AdditionalMsg string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls sendMessage with the rendered text.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().
		Str("product_id", note.Opportunity.ProductID).
		Str("margin_pct", note.Opportunity.MarginPct.String()).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("opportunity alert sent")
	return nil
}

func renderMessage(note Notification) string {
	opp := note.Opportunity
	builder := strings.Builder{}
	builder.WriteString("[Arbitrage Opportunity]\n")
	builder.WriteString(fmt.Sprintf("Product: %s\n", opp.ProductName))
	builder.WriteString(fmt.Sprintf("Buy: %s @ $%s (+$%s shipping)\n", opp.Buy.Marketplace, opp.Buy.Price.StringFixed(2), opp.Buy.Shipping.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Sell: %s @ $%s\n", opp.Sell.Marketplace, opp.Sell.Price.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Net profit: $%s after $%s fees\n", opp.NetProfit.StringFixed(2), opp.EstimatedFees.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Margin: %s%% (threshold %s%%)\n", opp.MarginPct.StringFixed(2), note.ThresholdPct))
	builder.WriteString(fmt.Sprintf("Risk: %s/10\n", opp.RiskScore.StringFixed(1)))
	if len(opp.RiskFactors) > 0 {
		builder.WriteString(fmt.Sprintf("Factors: %s\n", strings.Join(opp.RiskFactors, "; ")))
	}
	builder.WriteString(fmt.Sprintf("Updated: %s UTC\n", opp.LastUpdated.UTC().Format(time.RFC3339)))
	if opp.Buy.URL != "" {
		builder.WriteString(opp.Buy.URL + "\n")
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
