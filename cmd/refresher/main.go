package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"coinsight/internal/config"
	"coinsight/internal/database"
	"coinsight/internal/services"
)

// Keeps benchmark snapshots warm so analysis requests rarely pay for a live
// S&P 500 or BTC history fetch.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.Initialize(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}

	market := services.NewMarketClient(cfg.MarketAPIBase, cfg.MarketAPIKey)
	equity := services.NewEquityClient(cfg.EquityAPIBase, cfg.EquityAPIKey)
	benchmarks := services.NewBenchmarkService(db, equity, market, cfg.BenchmarkTTL, logger)

	refresh := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		for _, name := range []string{services.BenchmarkSP500, services.BenchmarkBitcoin} {
			bench, err := benchmarks.Refresh(ctx, name)
			if err != nil {
				logger.Warn("benchmark refresh failed",
					zap.String("benchmark", name), zap.Error(err))
				continue
			}
			logger.Info("benchmark refreshed",
				zap.String("benchmark", name),
				zap.Float64("cagr", bench.TrailingCAGR),
				zap.Float64("volatility", bench.Volatility),
				zap.Int("samples", bench.SampleSize))
		}
	}

	// Warm the snapshots immediately, then follow the schedule.
	refresh()

	c := cron.New()
	if _, err := c.AddFunc(cfg.RefreshSchedule, refresh); err != nil {
		logger.Fatal("invalid refresh schedule",
			zap.String("schedule", cfg.RefreshSchedule), zap.Error(err))
	}
	c.Start()
	logger.Info("refresher started", zap.String("schedule", cfg.RefreshSchedule))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx := c.Stop()
	<-ctx.Done()
	logger.Info("refresher stopped")
}
