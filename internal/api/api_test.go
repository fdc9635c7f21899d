package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coinsight/internal/services"
)

func stubProviders(t *testing.T) (market, macro, onchain, equity *httptest.Server) {
	t.Helper()

	market = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/cryptocurrency/quotes/latest":
			fmt.Fprint(w, `{"data": {"BTC": {"symbol": "BTC", "quote": {"USD": {
				"price": 50000, "percent_change_24h": 2.0, "market_cap": 1e12, "volume_24h": 5e10
			}}}}, "status": {"error_code": 0}}`)
		case "/v2/cryptocurrency/quotes/historical":
			var b strings.Builder
			b.WriteString(`{"data": {"quotes": [`)
			price := 40000.0
			for i := 0; i < 90; i++ {
				ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
				if i > 0 {
					b.WriteString(",")
				}
				fmt.Fprintf(&b, `{"timestamp": "%s", "quote": {"USD": {"price": %.2f}}}`, ts.Format(time.RFC3339), price)
				if i%3 == 0 {
					price *= 1.015
				} else {
					price *= 0.998
				}
			}
			b.WriteString(`]}}`)
			fmt.Fprint(w, b.String())
		}
	}))

	macro = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"observations": [{"date": "2024-03-01", "value": "4.00"}]}`)
	}))

	onchain = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"t": 1700000000, "v": 1.2}]`)
	}))

	equity = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString(`{"Time Series (Daily)": {`)
		price := 400.0
		for i := 0; i < 90; i++ {
			date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, `"%s": {"4. close": "%.2f"}`, date.Format("2006-01-02"), price)
			if i%2 == 0 {
				price *= 1.004
			} else {
				price *= 0.999
			}
		}
		b.WriteString(`}}`)
		fmt.Fprint(w, b.String())
	}))

	return market, macro, onchain, equity
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	market, macro, onchain, equity := stubProviders(t)
	t.Cleanup(market.Close)
	t.Cleanup(macro.Close)
	t.Cleanup(onchain.Close)
	t.Cleanup(equity.Close)

	logger := zap.NewNop()
	marketClient := services.NewMarketClient(market.URL, "key")
	benchmarks := services.NewBenchmarkService(nil, services.NewEquityClient(equity.URL, "key"), marketClient, time.Hour, logger)
	analyzer := services.NewAnalyzer(nil, marketClient,
		services.NewOnchainClient(onchain.URL, "key"),
		services.NewMacroClient(macro.URL, "key", time.Minute, logger),
		benchmarks, time.Minute, logger)
	portfolios := services.NewPortfolioService(nil, analyzer, benchmarks, logger)

	r := gin.New()
	SetupRoutes(r.Group("/api"), nil, analyzer, benchmarks, portfolios, logger)
	return r
}

func TestRunAnalysis(t *testing.T) {
	r := newTestRouter(t)

	body := `{"symbol": "BTC", "horizon_years": 2, "amount": 5000}`
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result services.AnalysisResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("undecodable response: %v", err)
	}
	if result.Symbol != "BTC" {
		t.Errorf("expected BTC, got %s", result.Symbol)
	}
	if result.HorizonYears != 2 {
		t.Errorf("expected horizon 2, got %.1f", result.HorizonYears)
	}
	if result.CurrentPrice != 50000 {
		t.Errorf("expected price 50000, got %.2f", result.CurrentPrice)
	}
}

func TestRunAnalysis_BadBody(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"horizon_years": 1}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing symbol, got %d", w.Code)
	}
}

func TestGetBenchmark(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/benchmarks/sp500", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var bench services.Benchmark
	if err := json.Unmarshal(w.Body.Bytes(), &bench); err != nil {
		t.Fatalf("undecodable response: %v", err)
	}
	if bench.Name != services.BenchmarkSP500 {
		t.Errorf("expected sp500, got %s", bench.Name)
	}
	if bench.Estimated {
		t.Error("stubbed benchmark must not be estimated")
	}
}

func TestGetBenchmark_Unknown(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/benchmarks/nasdaq", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
