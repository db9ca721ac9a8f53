// Package api exposes the arbitrage finder over HTTP.
package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"arbfinder/internal/engine"
	"arbfinder/internal/market"
	"arbfinder/internal/monitor"
	"arbfinder/internal/registry"
	"arbfinder/internal/scanner"
)

// Service is the scan coordinator surface the handlers drive.
type Service interface {
	Track(ctx context.Context, in scanner.ProductInput) (market.Product, error)
	Untrack(ctx context.Context, productID string) error
	Scan(ctx context.Context, productID string) (scanner.Result, error)
	EnqueueAll() int
	HandleMonitorEvent(monitorID string) (string, bool)

	Product(productID string) (market.Product, error)
	Products() []market.Product
	History(productID string, limit int) ([]market.PriceObservation, error)
	Opportunities(f registry.Filter) []market.Opportunity
	Stats() scanner.Stats
	EngineConfig() engine.Config
}

var _ Service = (*scanner.Coordinator)(nil)

// Options configure the router.
type Options struct {
	ServiceName string
	Version     string
	DemoMode    bool
	CORSOrigins []string
	MetricsPath string
	// Metrics is mounted at MetricsPath when set.
	Metrics http.Handler
}

// Server owns the gin engine.
type Server struct {
	svc    Service
	opts   Options
	logger zerolog.Logger
	engine *gin.Engine
}

// New builds the router.
func New(svc Service, opts Options, logger zerolog.Logger) *Server {
	if opts.ServiceName == "" {
		opts.ServiceName = "arbfinder"
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	s := &Server{
		svc:    svc,
		opts:   opts,
		logger: logger.With().Str("component", "api").Logger(),
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger), cors.New(corsConfig(opts.CORSOrigins)))

	r.GET("/", s.root)
	r.GET("/health", s.health)

	r.GET("/opportunities", s.listOpportunities)
	r.GET("/stats", s.stats)

	products := r.Group("/products")
	{
		products.POST("", s.createProduct)
		products.GET("", s.listProducts)
		products.GET("/:id", s.getProduct)
		products.DELETE("/:id", s.deleteProduct)
		products.GET("/:id/history", s.history)
		products.GET("/:id/history/chart.png", s.historyChart)
	}

	r.POST("/scan", s.scanAll)
	r.POST("/scan/:id", s.scanProduct)

	r.POST(monitor.WebhookPath, s.monitorWebhook)
	r.POST("/webhooks/test", s.testWebhook)

	if opts.Metrics != nil {
		r.GET(opts.MetricsPath, gin.WrapH(opts.Metrics))
	}

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Debug()
		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
