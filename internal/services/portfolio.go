package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"coinsight/internal/finance"
	"coinsight/internal/models"
)

// PortfolioService owns portfolio CRUD and the derived performance metrics.
type PortfolioService struct {
	db         *gorm.DB
	analyzer   *Analyzer
	benchmarks *BenchmarkService
	logger     *zap.Logger
}

// Holding is one aggregated position inside a portfolio.
type Holding struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	CostBasis    float64 `json:"cost_basis"`
	CurrentPrice float64 `json:"current_price"`
	MarketValue  float64 `json:"market_value"`
	ROI          float64 `json:"roi"`
}

// Performance is the computed state of a whole portfolio.
type Performance struct {
	PortfolioID  string    `json:"portfolio_id"`
	Holdings     []Holding `json:"holdings"`
	TotalCost    float64   `json:"total_cost"`
	TotalValue   float64   `json:"total_value"`
	ROI          float64   `json:"roi"`
	SharpeRatio  float64   `json:"sharpe_ratio"`
	MaxDrawdown  float64   `json:"max_drawdown"`
	Benchmark    string    `json:"benchmark"`
	BenchmarkROI float64   `json:"benchmark_roi"`
	ComputedAt   time.Time `json:"computed_at"`
}

func NewPortfolioService(db *gorm.DB, analyzer *Analyzer, benchmarks *BenchmarkService, logger *zap.Logger) *PortfolioService {
	return &PortfolioService{
		db:         db,
		analyzer:   analyzer,
		benchmarks: benchmarks,
		logger:     logger,
	}
}

// Create stores a new portfolio and returns it with its generated id.
func (s *PortfolioService) Create(name, currency string) (*models.Portfolio, error) {
	if name == "" {
		return nil, fmt.Errorf("portfolio name required")
	}
	if currency == "" {
		currency = "USD"
	}
	p := models.Portfolio{
		ID:       uuid.NewString(),
		Name:     name,
		Currency: currency,
	}
	if err := s.db.Create(&p).Error; err != nil {
		return nil, fmt.Errorf("creating portfolio: %w", err)
	}
	return &p, nil
}

// Get loads a portfolio with its transactions.
func (s *PortfolioService) Get(id string) (*models.Portfolio, error) {
	var p models.Portfolio
	err := s.db.Preload("Transactions").Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: portfolio %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AddTransaction validates and stores a buy or sell.
func (s *PortfolioService) AddTransaction(portfolioID string, tx models.Transaction) (*models.Transaction, error) {
	if _, err := s.Get(portfolioID); err != nil {
		return nil, err
	}
	if tx.Type != "buy" && tx.Type != "sell" {
		return nil, fmt.Errorf("transaction type must be buy or sell, got %q", tx.Type)
	}
	if tx.Quantity <= 0 || tx.Price <= 0 {
		return nil, fmt.Errorf("quantity and price must be positive")
	}
	if tx.ExecutedAt.IsZero() {
		tx.ExecutedAt = time.Now()
	}
	tx.PortfolioID = portfolioID

	if err := s.db.Create(&tx).Error; err != nil {
		return nil, fmt.Errorf("storing transaction: %w", err)
	}
	return &tx, nil
}

// Performance aggregates holdings, prices them live and computes the
// portfolio-level metrics against a benchmark.
func (s *PortfolioService) Performance(ctx context.Context, portfolioID, benchmark string) (*Performance, error) {
	p, err := s.Get(portfolioID)
	if err != nil {
		return nil, err
	}
	if benchmark == "" {
		benchmark = BenchmarkSP500
	}

	type position struct {
		quantity float64
		cost     float64
	}
	positions := make(map[string]*position)
	for _, tx := range p.Transactions {
		pos, ok := positions[tx.CoinSymbol]
		if !ok {
			pos = &position{}
			positions[tx.CoinSymbol] = pos
		}
		switch tx.Type {
		case "buy":
			pos.quantity += tx.Quantity
			pos.cost += tx.Quantity * tx.Price
		case "sell":
			// Reduce cost basis proportionally to the quantity sold.
			if pos.quantity > 0 {
				pos.cost -= pos.cost * (tx.Quantity / pos.quantity)
			}
			pos.quantity -= tx.Quantity
		}
	}

	perf := &Performance{
		PortfolioID: portfolioID,
		Benchmark:   benchmark,
		ComputedAt:  time.Now(),
	}

	var weightedReturns []float64
	for symbol, pos := range positions {
		if pos.quantity <= 0 {
			continue
		}

		holding := Holding{
			Symbol:    symbol,
			Quantity:  pos.quantity,
			CostBasis: pos.cost,
		}

		quote, err := s.analyzer.CachedQuote(ctx, symbol)
		if err != nil {
			s.logger.Warn("holding priced at cost: quote unavailable",
				zap.String("symbol", symbol), zap.Error(err))
			holding.MarketValue = pos.cost
		} else {
			holding.CurrentPrice = quote.Price
			holding.MarketValue = pos.quantity * quote.Price
		}
		holding.ROI = finance.ROI(holding.CostBasis, holding.MarketValue)

		perf.TotalCost += holding.CostBasis
		perf.TotalValue += holding.MarketValue
		perf.Holdings = append(perf.Holdings, holding)

		if history, err := s.analyzer.market.History(ctx, symbol, 365); err == nil {
			returns := finance.Returns(Prices(history))
			weight := holding.MarketValue
			for i, r := range returns {
				if i >= len(weightedReturns) {
					weightedReturns = append(weightedReturns, 0)
				}
				weightedReturns[i] += r * weight
			}
		}
	}

	if perf.TotalValue > 0 && len(weightedReturns) > 0 {
		for i := range weightedReturns {
			weightedReturns[i] /= perf.TotalValue
		}
		perf.MaxDrawdown = finance.MaxDrawdown(weightedReturns)

		riskFree, _ := s.analyzer.macro.RiskFreeRate(ctx)
		perf.SharpeRatio = finance.SharpeRatio(
			finance.AnnualizedReturn(weightedReturns),
			riskFree,
			finance.AnnualizedVolatility(weightedReturns),
		)
	}

	perf.ROI = finance.ROI(perf.TotalCost, perf.TotalValue)

	if bench, err := s.benchmarks.Get(ctx, benchmark); err == nil {
		perf.BenchmarkROI = bench.TrailingCAGR
	}

	return perf, nil
}
