package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	// Third-party data providers
	MarketAPIKey   string // CoinMarketCap-compatible market data API
	MarketAPIBase  string
	OnchainAPIKey  string // Glassnode-compatible on-chain metrics API
	OnchainAPIBase string
	EquityAPIKey   string // Alpha Vantage-compatible benchmark API
	EquityAPIBase  string
	MacroAPIKey    string // FRED-compatible macro series API
	MacroAPIBase   string

	// Cache TTLs
	QuoteTTL     time.Duration
	BenchmarkTTL time.Duration
	MacroTTL     time.Duration

	// Benchmark refresh daemon schedule (cron expression)
	RefreshSchedule string
}

func Load() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", "root:coinsight@tcp(127.0.0.1:3306)/coinsight?charset=utf8mb4&parseTime=True&loc=Local"),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		MarketAPIKey:   getEnv("MARKET_API_KEY", ""),
		MarketAPIBase:  getEnv("MARKET_API_BASE", "https://pro-api.coinmarketcap.com"),
		OnchainAPIKey:  getEnv("ONCHAIN_API_KEY", ""),
		OnchainAPIBase: getEnv("ONCHAIN_API_BASE", "https://api.glassnode.com"),
		EquityAPIKey:   getEnv("EQUITY_API_KEY", ""),
		EquityAPIBase:  getEnv("EQUITY_API_BASE", "https://www.alphavantage.co"),
		MacroAPIKey:    getEnv("MACRO_API_KEY", ""),
		MacroAPIBase:   getEnv("MACRO_API_BASE", "https://api.stlouisfed.org"),

		QuoteTTL:     getDurationEnv("QUOTE_TTL", 10*time.Minute),
		BenchmarkTTL: getDurationEnv("BENCHMARK_TTL", 24*time.Hour),
		MacroTTL:     getDurationEnv("MACRO_TTL", 24*time.Hour),

		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "0 */6 * * *"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// Accept plain seconds as well
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
