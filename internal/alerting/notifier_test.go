package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"arbfinder/internal/market"
)

func sampleOpportunity(productID, margin string) market.Opportunity {
	return market.Opportunity{
		ProductID:     productID,
		ProductName:   "Noise Cancelling Headphones",
		Buy:           market.Side{Marketplace: market.BestBuy, Price: decimal.NewFromInt(48), Shipping: decimal.NewFromInt(2), URL: "https://www.bestbuy.com/site/1.p"},
		Sell:          market.Side{Marketplace: market.Amazon, Price: decimal.NewFromInt(70)},
		GrossProfit:   decimal.NewFromInt(20),
		EstimatedFees: decimal.RequireFromString("10.5"),
		NetProfit:     decimal.RequireFromString("9.5"),
		MarginPct:     decimal.RequireFromString(margin),
		RiskScore:     decimal.RequireFromString("5.5"),
		RiskFactors:   []string{"Shipping costs reduce margin"},
		LastUpdated:   time.Now(),
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("path should contain sendMessage, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	note := Notification{Opportunity: sampleOpportunity("p1", "19"), ThresholdPct: "15.00"}

	if err := notifier.Notify(context.Background(), note); err != nil {
		t.Fatalf("Telegram Notify should succeed: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id mismatch: %#v", received)
	}
	if !strings.Contains(received["text"], "Margin: 19.00% (threshold 15.00%)") {
		t.Fatalf("unexpected text: %s", received["text"])
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	note := Notification{Opportunity: sampleOpportunity("p1", "19")}

	if err := notifier.Notify(context.Background(), note); err == nil {
		t.Fatal("ok=false should fail")
	}
}

type recordingNotifier struct {
	notes []Notification
	err   error
}

func (r *recordingNotifier) Notify(_ context.Context, note Notification) error {
	r.notes = append(r.notes, note)
	return r.err
}

func TestThrottleThresholdAndCooldown(t *testing.T) {
	rec := &recordingNotifier{}
	th := NewThrottle(rec, decimal.NewFromInt(15), time.Hour, []string{"telegram"})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	th.now = func() time.Time { return now }

	_ = th.Notify(context.Background(), Notification{Opportunity: sampleOpportunity("p1", "10")})
	if len(rec.notes) != 0 {
		t.Fatal("below-threshold margin must not notify")
	}

	_ = th.Notify(context.Background(), Notification{Opportunity: sampleOpportunity("p1", "19")})
	_ = th.Notify(context.Background(), Notification{Opportunity: sampleOpportunity("p1", "22")})
	if len(rec.notes) != 1 {
		t.Fatalf("cooldown should suppress repeats, got %d", len(rec.notes))
	}
	if rec.notes[0].ThresholdPct != "15.00" || rec.notes[0].Channels[0] != "telegram" {
		t.Fatalf("defaults not applied: %+v", rec.notes[0])
	}

	_ = th.Notify(context.Background(), Notification{Opportunity: sampleOpportunity("p2", "19")})
	if len(rec.notes) != 2 {
		t.Fatal("other products are not throttled")
	}

	now = now.Add(2 * time.Hour)
	_ = th.Notify(context.Background(), Notification{Opportunity: sampleOpportunity("p1", "19")})
	if len(rec.notes) != 3 {
		t.Fatal("cooldown should expire")
	}
}

func TestThrottleFailedSendDoesNotStartCooldown(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("boom")}
	th := NewThrottle(rec, decimal.Zero, time.Hour, nil)

	if err := th.Notify(context.Background(), Notification{Opportunity: sampleOpportunity("p1", "19")}); err == nil {
		t.Fatal("error should propagate")
	}
	rec.err = nil
	if err := th.Notify(context.Background(), Notification{Opportunity: sampleOpportunity("p1", "19")}); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
	if len(rec.notes) != 2 {
		t.Fatalf("expected two attempts, got %d", len(rec.notes))
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
