package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"coinsight/internal/config"
	"coinsight/internal/services"
)

// One-shot analysis from the command line, without the HTTP server or the
// database. Useful for smoke-testing the provider keys.
func main() {
	symbol := flag.String("symbol", "BTC", "coin symbol to analyze")
	horizon := flag.Float64("horizon", 1, "investment horizon in years")
	amount := flag.Float64("amount", 10000, "investment amount in USD")
	tolerance := flag.String("risk", services.RiskModerate, "risk tolerance: conservative, moderate, aggressive")
	benchmark := flag.String("benchmark", services.BenchmarkSP500, "benchmark: sp500 or btc")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	market := services.NewMarketClient(cfg.MarketAPIBase, cfg.MarketAPIKey)
	onchain := services.NewOnchainClient(cfg.OnchainAPIBase, cfg.OnchainAPIKey)
	macro := services.NewMacroClient(cfg.MacroAPIBase, cfg.MacroAPIKey, cfg.MacroTTL, logger)
	equity := services.NewEquityClient(cfg.EquityAPIBase, cfg.EquityAPIKey)

	benchmarks := services.NewBenchmarkService(nil, equity, market, cfg.BenchmarkTTL, logger)
	analyzer := services.NewAnalyzer(nil, market, onchain, macro, benchmarks, cfg.QuoteTTL, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := analyzer.Analyze(ctx, services.AnalysisRequest{
		Symbol:        *symbol,
		HorizonYears:  *horizon,
		Amount:        *amount,
		RiskTolerance: *tolerance,
		Benchmark:     *benchmark,
	})
	if err != nil {
		logger.Error("analysis failed", zap.Error(err))
		os.Exit(1)
	}

	fmt.Printf("=== %s | %.1fy horizon | $%.0f ===\n", result.Symbol, result.HorizonYears, result.Amount)
	fmt.Printf("Current price:     $%.2f (%.2f%% 24h)\n", result.CurrentPrice, result.Change24h*100)
	fmt.Printf("Historical CAGR:   %.2f%%\n", result.HistoricalCAGR*100)
	fmt.Printf("Projected price:   $%.2f\n", result.ProjectedPrice)
	fmt.Printf("Beta vs %-8s %.3f (%s, R2=%.3f, n=%d)\n", result.Benchmark+":", result.Beta.Beta, result.Beta.Confidence, result.Beta.R2, result.Beta.SampleSize)
	fmt.Printf("Discount rate:     %.2f%% (rf %.2f%% + premium %.2f%% + adj %.2f%%)\n",
		result.DiscountRate*100, result.RiskFreeRate*100, result.MarketPremium*100, result.Adjustments.Total()*100)
	fmt.Printf("NPV:               $%.2f\n", result.NPV)
	if result.IRRConverged {
		fmt.Printf("IRR:               %.2f%%\n", result.IRR*100)
	} else {
		fmt.Printf("IRR:               %.2f%% (approximate, solver did not converge)\n", result.IRR*100)
	}
	fmt.Printf("ROI:               %.2f%%\n", result.ROI*100)
	fmt.Printf("Volatility:        %.2f%% | Sharpe %.2f | MaxDD %.2f%%\n",
		result.Volatility*100, result.SharpeRatio, result.MaxDrawdown*100)
	fmt.Printf("VaR95 %.2f%% | ES95 %.2f%%\n", result.ValueAtRisk95*100, result.ExpectedShortfall*100)
	fmt.Printf("Monte Carlo @%dd:  P5 $%.2f | median $%.2f | P95 $%.2f\n",
		int(result.HorizonYears*365), result.MonteCarloBands.P5, result.MonteCarloBands.Median, result.MonteCarloBands.P95)
	fmt.Printf("Recommendation:    %s\n", result.Recommendation)
	for _, reason := range result.Rationale {
		fmt.Printf("  - %s\n", reason)
	}
	if !result.DataQuality.BenchmarkReal || !result.DataQuality.RiskFreeRateReal {
		fmt.Println("note: some inputs are estimated fallbacks, see data_quality")
	}
}
