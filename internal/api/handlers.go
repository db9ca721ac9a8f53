package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"arbfinder/internal/history"
	"arbfinder/internal/market"
	"arbfinder/internal/registry"
	"arbfinder/internal/scanner"
)

const defaultHistoryLimit = 50

type createProductRequest struct {
	Name       string `json:"name" binding:"required,max=200"`
	AmazonURL  string `json:"amazon_url" binding:"required,url"`
	BestBuyURL string `json:"bestbuy_url" binding:"required,url"`
	Category   string `json:"category" binding:"max=100"`
}

type scanResponse struct {
	Status      string              `json:"status"`
	ProductID   string              `json:"product_id"`
	State       scanner.State       `json:"state"`
	Opportunity *market.Opportunity `json:"opportunity"`
	Errors      map[string]string   `json:"errors,omitempty"`
}

func (s *Server) root(c *gin.Context) {
	cfg := s.svc.EngineConfig()
	c.JSON(http.StatusOK, gin.H{
		"status":    "running",
		"service":   s.opts.ServiceName,
		"version":   s.opts.Version,
		"demo_mode": s.opts.DemoMode,
		"config": gin.H{
			"min_margin_pct":  cfg.MinMarginPct,
			"fee_pct":         cfg.FeePct,
			"fee_marketplace": cfg.FeeMarketplace,
		},
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC()})
}

func (s *Server) listOpportunities(c *gin.Context) {
	var f registry.Filter
	var err error
	if f.MinMargin, err = decimalQuery(c, "min_margin"); err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	if f.MaxRisk, err = decimalQuery(c, "max_risk"); err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, s.svc.Opportunities(f))
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Stats())
}

func (s *Server) createProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, fmt.Sprintf("invalid payload: %v", err))
		return
	}

	product, err := s.svc.Track(c.Request.Context(), scanner.ProductInput{
		Name:     req.Name,
		Category: req.Category,
		URLs: map[market.Marketplace]string{
			market.Amazon:  req.AmazonURL,
			market.BestBuy: req.BestBuyURL,
		},
	})
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (s *Server) listProducts(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Products())
}

func (s *Server) getProduct(c *gin.Context) {
	product, err := s.svc.Product(c.Param("id"))
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) deleteProduct(c *gin.Context) {
	id := c.Param("id")
	if err := s.svc.Untrack(c.Request.Context(), id); err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "product_id": id})
}

func (s *Server) history(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			abortError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	id := c.Param("id")
	observations, err := s.svc.History(id, limit)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "json":
		c.JSON(http.StatusOK, observations)
	case "csv":
		var buf bytes.Buffer
		if err := history.WriteCSV(&buf, observations); err != nil {
			s.logger.Error().Err(err).Str("product_id", id).Msg("failed to write history csv")
			abortError(c, http.StatusInternalServerError, "failed to export history")
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+"-history.csv"))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	default:
		abortError(c, http.StatusBadRequest, "format must be json or csv")
	}
}

func (s *Server) historyChart(c *gin.Context) {
	id := c.Param("id")
	product, err := s.svc.Product(id)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	observations, err := s.svc.History(id, 0)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := history.RenderChart(&buf, product.Name, observations); err != nil {
		if errors.Is(err, history.ErrNotEnoughData) {
			abortError(c, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to render history chart")
		abortError(c, http.StatusInternalServerError, "failed to render chart")
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) scanAll(c *gin.Context) {
	n := s.svc.EnqueueAll()
	c.JSON(http.StatusAccepted, gin.H{"status": "scanning", "products_count": n})
}

func (s *Server) scanProduct(c *gin.Context) {
	res, err := s.svc.Scan(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	resp := scanResponse{
		Status:      "scanned",
		ProductID:   res.ProductID,
		State:       res.State,
		Opportunity: res.Opportunity,
	}
	if len(res.FetchErrors) > 0 {
		resp.Errors = make(map[string]string, len(res.FetchErrors))
		for m, ferr := range res.FetchErrors {
			resp.Errors[m.String()] = ferr.Error()
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scanner.ErrProductNotFound):
		abortError(c, http.StatusNotFound, "product not found")
	case errors.Is(err, scanner.ErrInvalidProduct):
		abortError(c, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		abortError(c, http.StatusInternalServerError, "internal error")
	}
}

func decimalQuery(c *gin.Context, key string) (*decimal.Decimal, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &d, nil
}
