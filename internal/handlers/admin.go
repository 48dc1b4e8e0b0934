package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"code-reveal-backend/internal/logger"
	"code-reveal-backend/internal/models"
	"code-reveal-backend/internal/services"
)

type SampleIngester interface {
	Ingest(ctx context.Context, quote *models.MarketQuote) (*models.MarketData, *models.RevealEvent, error)
}

type GameToggler interface {
	SetActive(ctx context.Context, active bool) (*models.RevealRecord, error)
}

// AdminHandler serves operator-only endpoints.
type AdminHandler struct {
	market SampleIngester
	engine GameToggler
	log    *logger.Logger
}

func NewAdminHandler(market SampleIngester, engine GameToggler, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		market: market,
		engine: engine,
		log:    log,
	}
}

func (h *AdminHandler) InjectSample(c *gin.Context) {
	var req models.MarketSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	quote := &models.MarketQuote{MarketCap: req.MarketCap, Price: req.Price}
	if req.Price > 0 {
		quote.Supply = req.MarketCap / req.Price
	}

	data, event, err := h.market.Ingest(c.Request.Context(), quote)
	if errors.Is(err, services.ErrInvalidSample) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.log.Errorf("Error ingesting operator sample: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to ingest sample",
			"details": err.Error(),
		})
		return
	}

	h.log.Infof("Operator %s injected market cap %s", c.GetString("admin_subject"), models.FormatMarketCap(req.MarketCap))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"market":  data.Update(),
		"event":   event,
	})
}

func (h *AdminHandler) SetGameActive(c *gin.Context) {
	var req models.GameActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	record, err := h.engine.SetActive(c.Request.Context(), *req.Active)
	if err != nil {
		h.log.Errorf("Error toggling game: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to update game",
			"details": err.Error(),
		})
		return
	}

	h.log.Infof("Operator %s set game active=%t", c.GetString("admin_subject"), record.IsActive)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   record,
	})
}
