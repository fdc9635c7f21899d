package finance

import (
	"math"
	"testing"
)

func TestReturns(t *testing.T) {
	prices := []float64{100, 110, 99, 99}
	got := Returns(prices)

	if len(got) != len(prices)-1 {
		t.Fatalf("expected %d returns, got %d", len(prices)-1, len(got))
	}
	want := []float64{0.1, -0.1, 0}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-9) {
			t.Errorf("return[%d] = %.6f, want %.6f", i, got[i], want[i])
		}
	}

	if r := Returns([]float64{42}); len(r) != 0 {
		t.Errorf("expected empty returns for single price, got %v", r)
	}
}

func TestMaxDrawdown(t *testing.T) {
	// 100 -> 120 -> 60 -> 90: trough 60 against peak 120 is a 50% drawdown.
	returns := Returns([]float64{100, 120, 60, 90})
	dd := MaxDrawdown(returns)
	if !almostEqual(dd, -0.5, 1e-9) {
		t.Errorf("expected drawdown -0.5, got %.6f", dd)
	}
}

func TestMaxDrawdown_MonotonicRise(t *testing.T) {
	returns := []float64{0.01, 0.02, 0.03}
	if dd := MaxDrawdown(returns); dd != 0 {
		t.Errorf("expected zero drawdown for rising path, got %.6f", dd)
	}
}

// tailFixture is 100 returns from -0.01 down to -1.00, shuffled order not
// required since VaR sorts internally.
func tailFixture() []float64 {
	returns := make([]float64, 100)
	for i := range returns {
		returns[i] = -float64(i+1) / 100
	}
	return returns
}

func TestValueAtRisk(t *testing.T) {
	returns := tailFixture()

	// Sorted ascending the series runs -1.00..-0.01; the 5% cutoff index is
	// 5, so VaR reads the 6th worst loss.
	v := ValueAtRisk(returns, 0.95)
	if !almostEqual(v, 0.95, 1e-9) {
		t.Errorf("expected VaR 0.95, got %.6f", v)
	}

	if v := ValueAtRisk(nil, 0.95); v != 0 {
		t.Errorf("expected 0 for empty series, got %.6f", v)
	}
}

func TestExpectedShortfall(t *testing.T) {
	returns := tailFixture()

	// Worst 5 losses are 1.00, 0.99, 0.98, 0.97, 0.96.
	es := ExpectedShortfall(returns, 0.95)
	if !almostEqual(es, 0.98, 1e-9) {
		t.Errorf("expected ES 0.98, got %.6f", es)
	}

	// ES is at least as severe as VaR by construction.
	if es < ValueAtRisk(returns, 0.95) {
		t.Errorf("ES (%.4f) must be >= VaR (%.4f)", es, ValueAtRisk(returns, 0.95))
	}
}

func TestSharpeRatio(t *testing.T) {
	if s := SharpeRatio(0.12, 0.04, 0.20); !almostEqual(s, 0.4, 1e-9) {
		t.Errorf("expected Sharpe 0.4, got %.4f", s)
	}
	if s := SharpeRatio(0.12, 0.04, 0); s != 0 {
		t.Errorf("expected 0 for zero volatility, got %.4f", s)
	}
}

func TestAnnualizedReturn(t *testing.T) {
	// A constant daily return compounds to (1+r)^252 - 1.
	daily := make([]float64, 252)
	for i := range daily {
		daily[i] = 0.001
	}
	want := math.Pow(1.001, 252) - 1
	if got := AnnualizedReturn(daily); !almostEqual(got, want, 1e-9) {
		t.Errorf("expected %.6f, got %.6f", want, got)
	}
}
