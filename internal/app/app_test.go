package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"arbfinder/internal/config"
	"arbfinder/internal/market"
)

func testApp(t *testing.T, yaml string) *App {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return NewApp(cfg, zerolog.Nop())
}

func TestEvaluatePrintsOpportunity(t *testing.T) {
	a := testApp(t, "app:\n  environment: test\n")

	var out bytes.Buffer
	err := a.Evaluate(context.Background(), EvaluateOptions{
		AmazonPrice:     decimal.NewFromInt(70),
		BestBuyPrice:    decimal.NewFromInt(48),
		BestBuyShipping: decimal.NewFromInt(2),
		Stock:           "In Stock",
	}, &out)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	text := out.String()
	for _, want := range []string{"bestbuy @ 50.00", "amazon @ 70.00", "9.50", "19.00%"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}

func TestEvaluateNoOpportunity(t *testing.T) {
	a := testApp(t, "app:\n  environment: test\n")

	var out bytes.Buffer
	err := a.Evaluate(context.Background(), EvaluateOptions{
		AmazonPrice:     decimal.NewFromInt(52),
		BestBuyPrice:    decimal.NewFromInt(48),
		BestBuyShipping: decimal.NewFromInt(2),
	}, &out)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !strings.Contains(out.String(), "No opportunity (minimum margin 5.00%)") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestEvaluateNotifyRequiresChannel(t *testing.T) {
	a := testApp(t, "app:\n  environment: test\n")
	err := a.Evaluate(context.Background(), EvaluateOptions{Notify: true}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("notify without a channel should fail")
	}
}

func TestShowQueriesServer(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/opportunities" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode([]market.Opportunity{{
			ProductName: "Headphones",
			Buy:         market.Side{Marketplace: market.BestBuy, Price: decimal.NewFromInt(48), Shipping: decimal.NewFromInt(2)},
			Sell:        market.Side{Marketplace: market.Amazon, Price: decimal.NewFromInt(70)},
			NetProfit:   decimal.RequireFromString("9.5"),
			MarginPct:   decimal.NewFromInt(19),
			RiskScore:   decimal.RequireFromString("5.5"),
			StockStatus: "In Stock",
			LastUpdated: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}})
	}))
	defer srv.Close()

	a := testApp(t, "app:\n  environment: test\n")
	var out bytes.Buffer
	if err := a.Show(context.Background(), ShowOptions{Server: srv.URL, MinMargin: "10"}, &out); err != nil {
		t.Fatalf("show: %v", err)
	}

	if gotQuery != "min_margin=10" {
		t.Fatalf("query mismatch: %s", gotQuery)
	}
	for _, want := range []string{"Headphones", "bestbuy @ 50.00", "19.00", "2026-01-02T03:04:05Z"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestShowServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"max_risk must be a number"}`))
	}))
	defer srv.Close()

	a := testApp(t, "app:\n  environment: test\n")
	err := a.Show(context.Background(), ShowOptions{Server: srv.URL, MaxRisk: "x"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected 400 error, got %v", err)
	}
}

func TestCheckDemoMode(t *testing.T) {
	a := testApp(t, "scraper:\n  demo_mode: true\n  demo_seed: 7\n")

	var out bytes.Buffer
	if err := a.Check(context.Background(), CheckOptions{}, &out); err != nil {
		t.Fatalf("check: %v\n%s", err, out.String())
	}
	text := out.String()
	if !strings.Contains(text, "(local, no api key)") || !strings.Contains(text, "(synthetic)") {
		t.Fatalf("unexpected output:\n%s", text)
	}
}

func TestCheckReportsScraperFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	a := testApp(t, "scraper:\n  base_url: "+srv.URL+"\n  api_key: bad\n")
	var out bytes.Buffer
	if err := a.Check(context.Background(), CheckOptions{}, &out); err == nil {
		t.Fatalf("expected failure:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "FAIL") {
		t.Fatalf("missing FAIL row:\n%s", out.String())
	}
}

func TestEngineConfigFromSettings(t *testing.T) {
	a := testApp(t, "arbitrage:\n  fee_marketplace: bestbuy\n  fee_pct: 10\n")
	cfg, err := a.engineConfig()
	if err != nil {
		t.Fatalf("engine config: %v", err)
	}
	if cfg.FeeMarketplace != market.BestBuy || !cfg.FeePct.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected engine config: %+v", cfg)
	}
}

func TestExportDownloadsHistory(t *testing.T) {
	var csvQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products/p-1/history":
			csvQuery = r.URL.RawQuery
			_, _ = w.Write([]byte("observed_at,marketplace\n"))
		case "/products/p-1/history/chart.png":
			_, _ = w.Write([]byte("\x89PNG"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out", "history.csv")
	pngPath := filepath.Join(dir, "out", "history.png")

	a := testApp(t, "app:\n  environment: test\n")
	err := a.Export(context.Background(), ExportOptions{
		Server:    srv.URL,
		ProductID: "p-1",
		CSVPath:   csvPath,
		PNGPath:   pngPath,
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if csvQuery != "format=csv&limit=10" {
		t.Fatalf("query mismatch: %s", csvQuery)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil || !strings.HasPrefix(string(data), "observed_at") {
		t.Fatalf("csv not written: %v %q", err, data)
	}
	if _, err := os.Stat(pngPath); err != nil {
		t.Fatalf("png not written: %v", err)
	}
}

func TestExportRequiresTarget(t *testing.T) {
	a := testApp(t, "app:\n  environment: test\n")
	if err := a.Export(context.Background(), ExportOptions{ProductID: "p-1"}); err == nil {
		t.Fatal("expected error without output paths")
	}
}
