package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"coinsight/internal/finance"
	"coinsight/internal/models"
	"coinsight/internal/services"
)

type APIHandler struct {
	db         *gorm.DB
	analyzer   *services.Analyzer
	benchmarks *services.BenchmarkService
	portfolios *services.PortfolioService
	logger     *zap.Logger
}

func SetupRoutes(r *gin.RouterGroup, db *gorm.DB, analyzer *services.Analyzer, benchmarks *services.BenchmarkService, portfolios *services.PortfolioService, logger *zap.Logger) *APIHandler {
	handler := &APIHandler{
		db:         db,
		analyzer:   analyzer,
		benchmarks: benchmarks,
		portfolios: portfolios,
		logger:     logger,
	}

	coins := r.Group("/coins")
	{
		coins.GET("", handler.ListCoins)
		coins.POST("", handler.CreateCoin)
		coins.GET("/:symbol", handler.GetCoin)
		coins.GET("/:symbol/history", handler.GetCoinHistory)
	}

	r.POST("/analyze", handler.RunAnalysis)
	analyses := r.Group("/analyses")
	{
		analyses.GET("/:id", handler.GetAnalysis)
		analyses.GET("/:id/report", handler.DownloadReport)
	}

	r.GET("/benchmarks/:name", handler.GetBenchmark)
	r.POST("/benchmarks/:name/refresh", handler.RefreshBenchmark)

	portfolioRoutes := r.Group("/portfolios")
	{
		portfolioRoutes.POST("", handler.CreatePortfolio)
		portfolioRoutes.GET("/:id", handler.GetPortfolio)
		portfolioRoutes.POST("/:id/transactions", handler.AddTransaction)
		portfolioRoutes.GET("/:id/performance", handler.GetPerformance)
	}

	return handler
}

func (h *APIHandler) errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDataFetch):
		return http.StatusBadGateway
	case errors.Is(err, finance.ErrInsufficientSample), errors.Is(err, finance.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *APIHandler) abortWithError(c *gin.Context, err error) {
	status := h.errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// ListCoins returns all tracked coins.
func (h *APIHandler) ListCoins(c *gin.Context) {
	var coins []models.Coin
	if err := h.db.Order("symbol").Find(&coins).Error; err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coins": coins, "total": len(coins)})
}

// CreateCoin registers a coin for tracking.
func (h *APIHandler) CreateCoin(c *gin.Context) {
	var req struct {
		Symbol   string `json:"symbol" binding:"required"`
		Name     string `json:"name" binding:"required"`
		Slug     string `json:"slug"`
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coin := models.Coin{
		Symbol:   strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Name:     req.Name,
		Slug:     req.Slug,
		Category: req.Category,
	}
	if err := h.db.Create(&coin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("coin %s already exists", coin.Symbol)})
			return
		}
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, coin)
}

// GetCoin returns one coin plus its live quote.
func (h *APIHandler) GetCoin(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	var coin models.Coin
	if err := h.db.Where("symbol = ?", symbol).First(&coin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("coin %s not tracked", symbol)})
			return
		}
		h.abortWithError(c, err)
		return
	}

	quote, err := h.analyzer.CachedQuote(c.Request.Context(), symbol)
	if err != nil {
		// The coin exists; ship it without the live quote.
		h.logger.Warn("quote unavailable", zap.String("symbol", symbol), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"coin": coin})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coin": coin, "quote": quote})
}

// GetCoinHistory returns stored price points, refreshing from the market API
// when the stored window is too short.
func (h *APIHandler) GetCoinHistory(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	days, err := strconv.Atoi(c.DefaultQuery("days", "365"))
	if err != nil || days < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer >= 2"})
		return
	}

	var coin models.Coin
	if err := h.db.Where("symbol = ?", symbol).First(&coin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("coin %s not tracked", symbol)})
			return
		}
		h.abortWithError(c, err)
		return
	}

	since := time.Now().AddDate(0, 0, -days)
	var stored []models.PricePoint
	if err := h.db.Where("coin_id = ? AND timestamp >= ?", coin.ID, since).
		Order("timestamp").Find(&stored).Error; err != nil {
		h.abortWithError(c, err)
		return
	}

	// A sparse local window falls through to the upstream API and backfills.
	if len(stored) < days/2 {
		points, err := h.analyzer.FetchAndStoreHistory(c.Request.Context(), &coin, days)
		if err != nil {
			if len(stored) == 0 {
				h.abortWithError(c, err)
				return
			}
			h.logger.Warn("history backfill failed, serving stored window",
				zap.String("symbol", symbol), zap.Error(err))
		} else {
			c.JSON(http.StatusOK, gin.H{"symbol": symbol, "points": points, "source": "market_api"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "points": stored, "source": "store"})
}

// RunAnalysis executes a full analysis for the request body.
func (h *APIHandler) RunAnalysis(c *gin.Context) {
	var req services.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetAnalysis returns a stored analysis by id.
func (h *APIHandler) GetAnalysis(c *gin.Context) {
	result, err := h.analyzer.LoadResult(c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DownloadReport streams a stored analysis as an xlsx workbook.
func (h *APIHandler) DownloadReport(c *gin.Context) {
	result, err := h.analyzer.LoadResult(c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	f, err := services.BuildReport(result)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("analysis-%s-%s.xlsx", result.Symbol, result.ID[:8])
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		h.logger.Error("report stream failed", zap.String("id", result.ID), zap.Error(err))
	}
}

// GetBenchmark returns a benchmark snapshot through the cache layers.
func (h *APIHandler) GetBenchmark(c *gin.Context) {
	bench, err := h.benchmarks.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, bench)
}

// RefreshBenchmark forces a live fetch of a benchmark snapshot.
func (h *APIHandler) RefreshBenchmark(c *gin.Context) {
	bench, err := h.benchmarks.Refresh(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, bench)
}

// CreatePortfolio stores a new empty portfolio.
func (h *APIHandler) CreatePortfolio(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Currency string `json:"currency"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.portfolios.Create(req.Name, req.Currency)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GetPortfolio returns a portfolio with its transactions.
func (h *APIHandler) GetPortfolio(c *gin.Context) {
	p, err := h.portfolios.Get(c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// AddTransaction appends a buy or sell to a portfolio.
func (h *APIHandler) AddTransaction(c *gin.Context) {
	var tx models.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stored, err := h.portfolios.AddTransaction(c.Param("id"), tx)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, stored)
}

// GetPerformance computes live portfolio performance.
func (h *APIHandler) GetPerformance(c *gin.Context) {
	perf, err := h.portfolios.Performance(c.Request.Context(), c.Param("id"), c.Query("benchmark"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, perf)
}
