package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coinsight/internal/cache"
	"coinsight/internal/finance"
	"coinsight/internal/models"
)

// Risk tolerance levels accepted in analysis requests.
const (
	RiskConservative = "conservative"
	RiskModerate     = "moderate"
	RiskAggressive   = "aggressive"
)

const defaultHistoryDays = 365 * 2

// AnalysisRequest is one user-initiated analysis.
type AnalysisRequest struct {
	Symbol        string    `json:"symbol" binding:"required"`
	HorizonYears  float64   `json:"horizon_years"`
	Amount        float64   `json:"amount"`
	RiskTolerance string    `json:"risk_tolerance"`
	Benchmark     string    `json:"benchmark"`
	CashFlows     []float64 `json:"cash_flows"` // optional explicit schedule
}

// DataQuality discloses which inputs came from live data and which from
// fallbacks. Informational only: estimated inputs never block the analysis.
type DataQuality struct {
	PriceHistoryReal bool `json:"price_history_real"`
	BenchmarkReal    bool `json:"benchmark_real"`
	RiskFreeRateReal bool `json:"risk_free_rate_real"`
	OnchainAvailable bool `json:"onchain_available"`
}

// AnalysisResult aggregates everything the dashboards render.
type AnalysisResult struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	HorizonYears float64   `json:"horizon_years"`
	Amount       float64   `json:"amount"`
	GeneratedAt  time.Time `json:"generated_at"`

	CurrentPrice float64 `json:"current_price"`
	Change24h    float64 `json:"change_24h"`
	MarketCap    float64 `json:"market_cap"`

	HistoricalCAGR float64 `json:"historical_cagr"`
	ProjectedPrice float64 `json:"projected_price"`

	Beta      finance.BetaResult `json:"beta"`
	Benchmark string             `json:"benchmark"`

	RiskFreeRate  float64             `json:"risk_free_rate"`
	MarketPremium float64             `json:"market_premium"`
	Adjustments   finance.Adjustments `json:"adjustments"`
	DiscountRate  float64             `json:"discount_rate"`

	CashFlows      []float64 `json:"cash_flows"`
	NPV            float64   `json:"npv"`
	IRR            float64   `json:"irr"`
	IRRConverged   bool      `json:"irr_converged"`
	ROI            float64   `json:"roi"`
	PaybackPeriods int       `json:"payback_periods"`

	Volatility        float64       `json:"volatility"` // annualized
	SharpeRatio       float64       `json:"sharpe_ratio"`
	MaxDrawdown       float64       `json:"max_drawdown"`
	ValueAtRisk95     float64       `json:"value_at_risk_95"`
	ExpectedShortfall float64       `json:"expected_shortfall_95"`
	MonteCarloBands   finance.Bands `json:"monte_carlo_bands"`

	MVRV float64 `json:"mvrv"`
	AVIV float64 `json:"aviv"`

	Recommendation string      `json:"recommendation"`
	Rationale      []string    `json:"rationale"`
	DataQuality    DataQuality `json:"data_quality"`
}

// Analyzer fans out the data fetches and runs the numeric core.
type Analyzer struct {
	db         *gorm.DB
	market     *MarketClient
	onchain    *OnchainClient
	macro      *MacroClient
	benchmarks *BenchmarkService
	quotes     *cache.TTLCache[*Quote]
	logger     *zap.Logger
}

func NewAnalyzer(db *gorm.DB, market *MarketClient, onchain *OnchainClient, macro *MacroClient, benchmarks *BenchmarkService, quoteTTL time.Duration, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		db:         db,
		market:     market,
		onchain:    onchain,
		macro:      macro,
		benchmarks: benchmarks,
		quotes:     cache.New[*Quote](quoteTTL),
		logger:     logger,
	}
}

// CachedQuote returns the quote for a symbol through the TTL cache.
func (a *Analyzer) CachedQuote(ctx context.Context, symbol string) (*Quote, error) {
	key := cache.Key("quote", symbol)
	if q, ok := a.quotes.Get(key); ok {
		return q, nil
	}
	q, err := a.market.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	a.quotes.Set(key, q)
	return q, nil
}

// Analyze runs a full analysis: concurrent fetches, then the pure numeric
// layer, then persistence of the result record.
func (a *Analyzer) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	req = normalizeRequest(req)

	// Fan-out: each goroutine writes only its own variables; the WaitGroup
	// is the only synchronization needed.
	var (
		wg sync.WaitGroup

		quote    *Quote
		quoteErr error

		history    []PricePoint
		historyErr error

		bench    *Benchmark
		benchErr error

		mvrv, aviv float64
		onchainOK  bool

		riskFree     float64
		riskFreeReal bool
	)

	wg.Add(5)
	go func() {
		defer wg.Done()
		quote, quoteErr = a.CachedQuote(ctx, req.Symbol)
	}()
	go func() {
		defer wg.Done()
		history, historyErr = a.market.History(ctx, req.Symbol, defaultHistoryDays)
	}()
	go func() {
		defer wg.Done()
		bench, benchErr = a.benchmarks.Get(ctx, req.Benchmark)
	}()
	go func() {
		defer wg.Done()
		asset := strings.ToLower(req.Symbol)
		m, errM := a.onchain.MVRV(ctx, asset)
		v, errA := a.onchain.AVIV(ctx, asset)
		if errM == nil {
			mvrv = m
		}
		if errA == nil {
			aviv = v
		}
		onchainOK = errM == nil || errA == nil
	}()
	go func() {
		defer wg.Done()
		riskFree, riskFreeReal = a.macro.RiskFreeRate(ctx)
	}()
	wg.Wait()

	// Price data is the one input that cannot be substituted.
	if quoteErr != nil {
		return nil, fmt.Errorf("quote for %s: %w", req.Symbol, quoteErr)
	}
	if historyErr != nil {
		return nil, fmt.Errorf("price history for %s: %w", req.Symbol, historyErr)
	}
	if len(history) < 2 {
		return nil, fmt.Errorf("%w: price history for %s has %d points", finance.ErrInsufficientSample, req.Symbol, len(history))
	}
	if benchErr != nil {
		// Get only fails on an unknown benchmark name; fetch failures
		// already degraded to the estimated fallback inside the service.
		return nil, fmt.Errorf("benchmark %s: %w", req.Benchmark, benchErr)
	}

	result := a.compute(req, quote, history, bench, mvrv, aviv, riskFree)
	result.DataQuality = DataQuality{
		PriceHistoryReal: true,
		BenchmarkReal:    !bench.Estimated,
		RiskFreeRateReal: riskFreeReal,
		OnchainAvailable: onchainOK,
	}

	if err := a.persist(result); err != nil {
		a.logger.Warn("analysis record persistence failed",
			zap.String("symbol", req.Symbol), zap.Error(err))
	}
	return result, nil
}

func normalizeRequest(req AnalysisRequest) AnalysisRequest {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.HorizonYears <= 0 {
		req.HorizonYears = 1
	}
	if req.Amount <= 0 {
		req.Amount = 10000
	}
	switch req.RiskTolerance {
	case RiskConservative, RiskModerate, RiskAggressive:
	default:
		req.RiskTolerance = RiskModerate
	}
	if req.Benchmark == "" {
		req.Benchmark = BenchmarkSP500
	}
	return req
}

func (a *Analyzer) compute(req AnalysisRequest, quote *Quote, history []PricePoint, bench *Benchmark, mvrv, aviv, riskFree float64) *AnalysisResult {
	prices := Prices(history)
	returns := finance.Returns(prices)

	years := history[len(history)-1].Timestamp.Sub(history[0].Timestamp).Hours() / 24 / 365.25
	if years <= 0 {
		years = float64(len(history)) / 365.25
	}

	cagr, err := finance.CAGRFromSeries(prices, years)
	if err != nil {
		a.logger.Warn("CAGR unavailable, projecting flat",
			zap.String("symbol", req.Symbol), zap.Error(err))
		cagr = 0
	}

	beta := a.betaFor(req.Symbol, req.Benchmark, returns, bench)

	adjustments := finance.Adjustments{
		MVRV:      finance.MVRVAdjustment(mvrv),
		Liquidity: finance.LiquidityAdjustment(volumeToMarketCap(quote)),
	}
	if aviv > 0 {
		adjustments.AVIV = finance.MVRVAdjustment(aviv)
	}

	premium := bench.TrailingCAGR - riskFree
	discountRate := finance.DiscountRate(riskFree, beta.Beta, premium, adjustments)

	projected := finance.ProjectPrice(quote.Price, cagr, req.HorizonYears)

	flows := req.CashFlows
	if len(flows) == 0 {
		flows = defaultCashFlows(req.Amount, quote.Price, projected, req.HorizonYears)
	}

	npv := finance.NPV(discountRate, flows)
	irr, irrErr := finance.IRR(flows)
	irrConverged := irrErr == nil
	if irrErr != nil && !errors.Is(irrErr, finance.ErrNoConvergence) {
		irr = 0
	}

	volatility := finance.AnnualizedVolatility(returns)
	annualReturn := finance.AnnualizedReturn(returns)

	bands, bandsErr := finance.MonteCarloBands(
		quote.Price,
		finance.Mean(returns),
		finance.StdDev(returns),
		int(req.HorizonYears*365),
		finance.DefaultMonteCarloPaths,
		time.Now().UnixNano(),
	)
	if bandsErr != nil {
		a.logger.Warn("Monte Carlo simulation skipped",
			zap.String("symbol", req.Symbol), zap.Error(bandsErr))
	}

	result := &AnalysisResult{
		ID:           uuid.NewString(),
		Symbol:       req.Symbol,
		HorizonYears: req.HorizonYears,
		Amount:       req.Amount,
		GeneratedAt:  time.Now(),

		CurrentPrice: quote.Price,
		Change24h:    quote.Change24h,
		MarketCap:    quote.MarketCap,

		HistoricalCAGR: cagr,
		ProjectedPrice: projected,

		Beta:      beta,
		Benchmark: req.Benchmark,

		RiskFreeRate:  riskFree,
		MarketPremium: premium,
		Adjustments:   adjustments,
		DiscountRate:  discountRate,

		CashFlows:      flows,
		NPV:            npv,
		IRR:            irr,
		IRRConverged:   irrConverged,
		ROI:            finance.ROI(req.Amount, req.Amount*projected/quote.Price),
		PaybackPeriods: finance.PaybackPeriod(flows),

		Volatility:        volatility,
		SharpeRatio:       finance.SharpeRatio(annualReturn, riskFree, volatility),
		MaxDrawdown:       finance.MaxDrawdown(returns),
		ValueAtRisk95:     finance.ValueAtRisk(returns, 0.95),
		ExpectedShortfall: finance.ExpectedShortfall(returns, 0.95),
		MonteCarloBands:   bands,

		MVRV: mvrv,
		AVIV: aviv,
	}

	result.Recommendation, result.Rationale = recommend(result, req.RiskTolerance)
	return result
}

// betaFor reads a cached beta when fresh, recomputing and upserting otherwise.
func (a *Analyzer) betaFor(symbol, benchName string, assetReturns []float64, bench *Benchmark) finance.BetaResult {
	var coin models.Coin
	coinKnown := a.db != nil && a.db.Where("symbol = ?", symbol).First(&coin).Error == nil

	if coinKnown {
		var row models.BetaCache
		err := a.db.Where("coin_id = ? AND benchmark = ? AND expires_at > ?",
			coin.ID, benchName, time.Now()).First(&row).Error
		if err == nil {
			return finance.BetaResult{
				Beta:       row.Beta,
				R2:         row.R2,
				SampleSize: row.SampleSize,
				Confidence: row.Confidence,
			}
		}
	}

	aligned, benchAligned := alignSeries(assetReturns, bench.Returns)
	beta, err := finance.Beta(aligned, benchAligned)
	if err != nil {
		a.logger.Debug("beta estimation degraded to default",
			zap.String("symbol", symbol), zap.Error(err))
	}

	if coinKnown {
		row := models.BetaCache{
			CoinID:     coin.ID,
			Benchmark:  benchName,
			Beta:       beta.Beta,
			R2:         beta.R2,
			SampleSize: beta.SampleSize,
			Confidence: beta.Confidence,
			ExpiresAt:  time.Now().Add(24 * time.Hour),
		}
		if err := a.db.Where("coin_id = ? AND benchmark = ?", coin.ID, benchName).
			Assign(row).FirstOrCreate(&models.BetaCache{}).Error; err != nil {
			a.logger.Debug("beta cache upsert failed", zap.Error(err))
		}
	}
	return beta
}

// alignSeries trims two return series to their common trailing window.
func alignSeries(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return a[len(a)-n:], b[len(b)-n:]
}

// defaultCashFlows models a single buy-and-hold position: the outlay now and
// the projected terminal value after the horizon, with empty years between.
func defaultCashFlows(amount, currentPrice, projectedPrice, horizonYears float64) []float64 {
	periods := int(horizonYears + 0.5)
	if periods < 1 {
		periods = 1
	}

	flows := make([]float64, periods+1)
	flows[0] = -amount
	if currentPrice > 0 {
		flows[periods] = amount * projectedPrice / currentPrice
	}
	return flows
}

func volumeToMarketCap(q *Quote) float64 {
	if q.MarketCap <= 0 {
		return 0
	}
	return q.Volume24h / q.MarketCap
}

// recommend maps the computed metrics and the user's risk tolerance to an
// action label plus the reasons behind it.
func recommend(r *AnalysisResult, tolerance string) (string, []string) {
	var rationale []string
	score := 0

	if r.NPV > 0 {
		score++
		rationale = append(rationale, fmt.Sprintf("positive NPV of %.2f at a %.1f%% discount rate", r.NPV, r.DiscountRate*100))
	} else {
		score--
		rationale = append(rationale, fmt.Sprintf("negative NPV of %.2f at a %.1f%% discount rate", r.NPV, r.DiscountRate*100))
	}

	if r.IRRConverged && r.IRR > r.DiscountRate {
		score++
		rationale = append(rationale, fmt.Sprintf("IRR %.1f%% clears the %.1f%% hurdle", r.IRR*100, r.DiscountRate*100))
	}
	if !r.IRRConverged {
		rationale = append(rationale, "IRR solver did not converge; treat the rate as approximate")
	}

	maxVol := map[string]float64{
		RiskConservative: 0.40,
		RiskModerate:     0.80,
		RiskAggressive:   1.50,
	}[tolerance]
	if r.Volatility > maxVol {
		score--
		rationale = append(rationale, fmt.Sprintf("annualized volatility %.0f%% exceeds the %s cap of %.0f%%", r.Volatility*100, tolerance, maxVol*100))
	}

	if r.Beta.Confidence == finance.ConfidenceLow {
		rationale = append(rationale, "beta estimate has low confidence; benchmark sensitivity is uncertain")
	}
	if r.MVRV > 3 {
		score--
		rationale = append(rationale, fmt.Sprintf("MVRV %.2f signals overvaluation", r.MVRV))
	}

	switch {
	case score >= 2:
		return "buy", rationale
	case score <= -1:
		return "avoid", rationale
	default:
		return "hold", rationale
	}
}

func (a *Analyzer) persist(result *AnalysisResult) error {
	if a.db == nil {
		return nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("serializing analysis result: %w", err)
	}
	record := models.AnalysisRecord{
		ID:           result.ID,
		CoinSymbol:   result.Symbol,
		HorizonYears: result.HorizonYears,
		Amount:       result.Amount,
		ResultJSON:   string(payload),
	}
	return a.db.Create(&record).Error
}

// FetchAndStoreHistory pulls daily history from the market API and backfills
// the price-point table, ignoring rows that already exist.
func (a *Analyzer) FetchAndStoreHistory(ctx context.Context, coin *models.Coin, days int) ([]PricePoint, error) {
	points, err := a.market.History(ctx, coin.Symbol, days)
	if err != nil {
		return nil, err
	}
	if a.db == nil || len(points) == 0 {
		return points, nil
	}

	rows := make([]models.PricePoint, 0, len(points))
	for _, p := range points {
		rows = append(rows, models.PricePoint{
			CoinID:    coin.ID,
			Timestamp: p.Timestamp,
			Price:     p.Price,
		})
	}
	if err := a.db.Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, 500).Error; err != nil {
		a.logger.Warn("price history backfill failed",
			zap.String("symbol", coin.Symbol), zap.Error(err))
	}
	return points, nil
}

// LoadResult reads a stored analysis back from its record.
func (a *Analyzer) LoadResult(id string) (*AnalysisResult, error) {
	if a.db == nil {
		return nil, fmt.Errorf("%w: no store configured", ErrNotFound)
	}
	var record models.AnalysisRecord
	if err := a.db.Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: analysis %s", ErrNotFound, id)
		}
		return nil, err
	}
	var result AnalysisResult
	if err := json.Unmarshal([]byte(record.ResultJSON), &result); err != nil {
		return nil, fmt.Errorf("corrupt analysis record %s: %w", id, err)
	}
	return &result, nil
}
