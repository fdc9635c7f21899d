package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"coinsight/internal/api"
	"coinsight/internal/config"
	"coinsight/internal/database"
	"coinsight/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.Initialize(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}

	market := services.NewMarketClient(cfg.MarketAPIBase, cfg.MarketAPIKey)
	onchain := services.NewOnchainClient(cfg.OnchainAPIBase, cfg.OnchainAPIKey)
	macro := services.NewMacroClient(cfg.MacroAPIBase, cfg.MacroAPIKey, cfg.MacroTTL, logger)
	equity := services.NewEquityClient(cfg.EquityAPIBase, cfg.EquityAPIKey)

	benchmarks := services.NewBenchmarkService(db, equity, market, cfg.BenchmarkTTL, logger)
	analyzer := services.NewAnalyzer(db, market, onchain, macro, benchmarks, cfg.QuoteTTL, logger)
	portfolios := services.NewPortfolioService(db, analyzer, benchmarks, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := api.SetupRoutes(r.Group("/api"), db, analyzer, benchmarks, portfolios, logger)
	r.GET("/ws/prices", handler.StreamPrices)

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
