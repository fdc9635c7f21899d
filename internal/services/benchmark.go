package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coinsight/internal/cache"
	"coinsight/internal/finance"
	"coinsight/internal/models"
)

// Supported benchmark names.
const (
	BenchmarkSP500   = "sp500"
	BenchmarkBitcoin = "btc"
)

// SP500Ticker is the index-tracking ticker used to source the S&P 500 series.
const SP500Ticker = "SPY"

// Fallback constants used only when every lookup layer fails. Snapshots built
// from them are flagged Estimated.
const (
	FallbackSP500CAGR       = 0.085
	FallbackSP500Volatility = 0.16
	FallbackBTCCAGR         = 0.45
	FallbackBTCVolatility   = 0.65
)

const benchmarkWindowDays = 365 * 3

// Benchmark is a snapshot of a reference asset used for beta and
// discount-rate calculations.
type Benchmark struct {
	Name         string    `json:"name"`
	CurrentValue float64   `json:"current_value"`
	TrailingCAGR float64   `json:"trailing_cagr"`
	Volatility   float64   `json:"volatility"` // annualized
	Returns      []float64 `json:"-"`          // daily return series
	SampleSize   int       `json:"sample_size"`
	Estimated    bool      `json:"estimated"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// BenchmarkService resolves benchmark snapshots through three layers: the
// in-process TTL cache, the snapshot table, and finally a live fetch that
// upserts the table. Fallback constants are the last resort.
type BenchmarkService struct {
	db     *gorm.DB
	equity *EquityClient
	market *MarketClient
	memory *cache.TTLCache[*Benchmark]
	ttl    time.Duration
	logger *zap.Logger
}

func NewBenchmarkService(db *gorm.DB, equity *EquityClient, market *MarketClient, ttl time.Duration, logger *zap.Logger) *BenchmarkService {
	return &BenchmarkService{
		db:     db,
		equity: equity,
		market: market,
		memory: cache.New[*Benchmark](ttl),
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the named benchmark, from cache when fresh.
func (s *BenchmarkService) Get(ctx context.Context, name string) (*Benchmark, error) {
	if name != BenchmarkSP500 && name != BenchmarkBitcoin {
		return nil, fmt.Errorf("%w: unknown benchmark %q", ErrNotFound, name)
	}

	key := cache.Key("benchmark", name)
	if b, ok := s.memory.Get(key); ok {
		return b, nil
	}

	if b := s.fromSnapshotTable(name); b != nil {
		s.memory.Set(key, b)
		return b, nil
	}

	b, err := s.Refresh(ctx, name)
	if err != nil {
		s.logger.Warn("benchmark fetch failed, using fallback constants",
			zap.String("benchmark", name), zap.Error(err))
		b = fallbackBenchmark(name)
	}

	s.memory.Set(key, b)
	return b, nil
}

// Refresh fetches the benchmark live and upserts the snapshot table. Used by
// both the cache-miss path and the cron refresher.
func (s *BenchmarkService) Refresh(ctx context.Context, name string) (*Benchmark, error) {
	var points []PricePoint
	var err error

	switch name {
	case BenchmarkSP500:
		points, err = s.equity.DailyCloses(ctx, SP500Ticker)
	case BenchmarkBitcoin:
		points, err = s.market.History(ctx, "BTC", benchmarkWindowDays)
	default:
		return nil, fmt.Errorf("%w: unknown benchmark %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	if len(points) < finance.MinBetaSamples+1 {
		return nil, fmt.Errorf("%w: benchmark %s series too short (%d points)", ErrDataFetch, name, len(points))
	}

	if len(points) > benchmarkWindowDays {
		points = points[len(points)-benchmarkWindowDays:]
	}

	prices := Prices(points)
	returns := finance.Returns(prices)
	years := points[len(points)-1].Timestamp.Sub(points[0].Timestamp).Hours() / 24 / 365.25

	cagr, err := finance.CAGRFromSeries(prices, years)
	if err != nil {
		return nil, fmt.Errorf("%w: benchmark %s CAGR: %v", ErrDataFetch, name, err)
	}

	b := &Benchmark{
		Name:         name,
		CurrentValue: prices[len(prices)-1],
		TrailingCAGR: cagr,
		Volatility:   finance.AnnualizedVolatility(returns),
		Returns:      returns,
		SampleSize:   len(returns),
		FetchedAt:    time.Now(),
	}

	if err := s.upsertSnapshot(b); err != nil {
		s.logger.Warn("benchmark snapshot upsert failed",
			zap.String("benchmark", name), zap.Error(err))
	}
	s.memory.Set(cache.Key("benchmark", name), b)
	return b, nil
}

func (s *BenchmarkService) fromSnapshotTable(name string) *Benchmark {
	if s.db == nil {
		return nil
	}

	var row models.BenchmarkSnapshot
	err := s.db.Where("name = ? AND expires_at > ?", name, time.Now()).First(&row).Error
	if err != nil {
		return nil
	}

	var returns []float64
	if row.ReturnsJSON != "" {
		if err := json.Unmarshal([]byte(row.ReturnsJSON), &returns); err != nil {
			s.logger.Warn("corrupt returns payload in benchmark snapshot",
				zap.String("benchmark", name), zap.Error(err))
			return nil
		}
	}

	return &Benchmark{
		Name:         row.Name,
		CurrentValue: row.CurrentValue,
		TrailingCAGR: row.TrailingCAGR,
		Volatility:   row.Volatility,
		Returns:      returns,
		SampleSize:   row.SampleSize,
		Estimated:    row.Estimated,
		FetchedAt:    row.UpdatedAt,
	}
}

func (s *BenchmarkService) upsertSnapshot(b *Benchmark) error {
	if s.db == nil {
		return nil
	}

	payload, err := json.Marshal(b.Returns)
	if err != nil {
		return fmt.Errorf("serializing returns: %w", err)
	}

	row := models.BenchmarkSnapshot{
		Name:         b.Name,
		CurrentValue: b.CurrentValue,
		TrailingCAGR: b.TrailingCAGR,
		Volatility:   b.Volatility,
		ReturnsJSON:  string(payload),
		SampleSize:   b.SampleSize,
		Estimated:    b.Estimated,
		ExpiresAt:    time.Now().Add(s.ttl),
	}

	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_value", "trailing_cagr", "volatility",
			"returns_json", "sample_size", "estimated", "expires_at", "updated_at",
		}),
	}).Create(&row).Error
}

// fallbackBenchmark builds an estimated snapshot from documented constants.
// It carries no return series, so downstream beta falls back to its default.
func fallbackBenchmark(name string) *Benchmark {
	b := &Benchmark{Name: name, Estimated: true, FetchedAt: time.Now()}
	switch name {
	case BenchmarkSP500:
		b.TrailingCAGR = FallbackSP500CAGR
		b.Volatility = FallbackSP500Volatility
	case BenchmarkBitcoin:
		b.TrailingCAGR = FallbackBTCCAGR
		b.Volatility = FallbackBTCVolatility
	}
	return b
}
