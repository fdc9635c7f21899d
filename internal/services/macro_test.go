package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMacroClient_Series(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("series_id"); got != SeriesTreasury10Y {
			t.Errorf("unexpected series_id %s", got)
		}
		// Descending order with a missing value, as FRED serves it.
		fmt.Fprint(w, `{"observations": [
			{"date": "2024-03-01", "value": "4.25"},
			{"date": "2024-02-29", "value": "."},
			{"date": "2024-02-28", "value": "4.20"}
		]}`)
	}))
	defer srv.Close()

	client := NewMacroClient(srv.URL, "test-key", time.Minute, zap.NewNop())
	obs, err := client.Series(context.Background(), SeriesTreasury10Y, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(obs) != 2 {
		t.Fatalf("expected 2 usable observations, got %d", len(obs))
	}
	// Oldest first after the reversal.
	if obs[0].Value != 4.20 || obs[1].Value != 4.25 {
		t.Errorf("unexpected order: %v", obs)
	}
}

func TestMacroClient_RiskFreeRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"observations": [{"date": "2024-03-01", "value": "4.25"}]}`)
	}))
	defer srv.Close()

	client := NewMacroClient(srv.URL, "test-key", time.Minute, zap.NewNop())
	rate, real := client.RiskFreeRate(context.Background())
	if !real {
		t.Fatal("expected live rate")
	}
	if rate != 0.0425 {
		t.Errorf("expected 0.0425, got %.6f", rate)
	}
}

func TestMacroClient_SeriesCached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"observations": [{"date": "2024-03-01", "value": "4.25"}]}`)
	}))
	defer srv.Close()

	client := NewMacroClient(srv.URL, "test-key", time.Minute, zap.NewNop())
	for i := 0; i < 3; i++ {
		if _, err := client.Series(context.Background(), SeriesFedFunds, 5); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", calls)
	}
}

func TestMacroClient_RiskFreeRateFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewMacroClient(srv.URL, "test-key", time.Minute, zap.NewNop())
	rate, real := client.RiskFreeRate(context.Background())
	if real {
		t.Fatal("expected fallback rate")
	}
	if rate != FallbackRiskFreeRate {
		t.Errorf("expected fallback %.4f, got %.4f", FallbackRiskFreeRate, rate)
	}
}
