package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"coinsight/internal/finance"
)

// equityStub serves an Alpha Vantage-style daily series with steady growth.
func equityStub(t *testing.T, days int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString(`{"Time Series (Daily)": {`)
		price := 400.0
		for i := 0; i < days; i++ {
			date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, `"%s": {"4. close": "%.2f"}`, date.Format("2006-01-02"), price)
			price *= 1.001
		}
		b.WriteString(`}}`)
		fmt.Fprint(w, b.String())
	}))
}

func TestBenchmarkService_UnknownName(t *testing.T) {
	svc := NewBenchmarkService(nil, NewEquityClient("http://unused", ""), NewMarketClient("http://unused", ""), time.Hour, zap.NewNop())

	_, err := svc.Get(context.Background(), "nasdaq")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBenchmarkService_Refresh(t *testing.T) {
	srv := equityStub(t, 120)
	defer srv.Close()

	svc := NewBenchmarkService(nil, NewEquityClient(srv.URL, "key"), NewMarketClient("http://unused", ""), time.Hour, zap.NewNop())

	bench, err := svc.Refresh(context.Background(), BenchmarkSP500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if bench.Estimated {
		t.Error("live refresh must not be flagged estimated")
	}
	if bench.SampleSize != 119 {
		t.Errorf("expected 119 returns, got %d", bench.SampleSize)
	}
	if bench.TrailingCAGR <= 0 {
		t.Errorf("expected positive CAGR for a rising series, got %.4f", bench.TrailingCAGR)
	}
	// Every daily return is 0.1%, so volatility is ~0 and beta against this
	// series would degrade to the default. CurrentValue is the last close.
	if bench.CurrentValue <= 400 {
		t.Errorf("expected last close above 400, got %.2f", bench.CurrentValue)
	}
}

func TestBenchmarkService_GetUsesMemoryCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var b strings.Builder
		b.WriteString(`{"Time Series (Daily)": {`)
		for i := 0; i < 60; i++ {
			date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, `"%s": {"4. close": "%.2f"}`, date.Format("2006-01-02"), 400+float64(i))
		}
		b.WriteString(`}}`)
		fmt.Fprint(w, b.String())
	}))
	defer srv.Close()

	svc := NewBenchmarkService(nil, NewEquityClient(srv.URL, "key"), NewMarketClient("http://unused", ""), time.Hour, zap.NewNop())

	if _, err := svc.Get(context.Background(), BenchmarkSP500); err != nil {
		t.Fatalf("first get failed: %v", err)
	}
	if _, err := svc.Get(context.Background(), BenchmarkSP500); err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single upstream call, got %d", calls)
	}
}

func TestBenchmarkService_FallbackOnFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := NewBenchmarkService(nil, NewEquityClient(srv.URL, "key"), NewMarketClient("http://unused", ""), time.Hour, zap.NewNop())

	bench, err := svc.Get(context.Background(), BenchmarkSP500)
	if err != nil {
		t.Fatalf("fallback path must not error: %v", err)
	}
	if !bench.Estimated {
		t.Error("expected estimated fallback snapshot")
	}
	if bench.TrailingCAGR != FallbackSP500CAGR {
		t.Errorf("expected fallback CAGR %.3f, got %.3f", FallbackSP500CAGR, bench.TrailingCAGR)
	}
	if len(bench.Returns) != 0 {
		t.Errorf("fallback snapshot must carry no return series, got %d", len(bench.Returns))
	}
}

func TestFallbackBenchmark_DegradesBetaToDefault(t *testing.T) {
	bench := fallbackBenchmark(BenchmarkSP500)

	asset := make([]float64, 48)
	for i := range asset {
		asset[i] = 0.01
	}
	aligned, benchAligned := alignSeries(asset, bench.Returns)
	res, err := finance.Beta(aligned, benchAligned)
	if !errors.Is(err, finance.ErrInsufficientSample) {
		t.Fatalf("expected ErrInsufficientSample, got %v", err)
	}
	if res.Beta != finance.DefaultBeta {
		t.Errorf("expected default beta, got %.4f", res.Beta)
	}
}
