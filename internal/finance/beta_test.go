package finance

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func seriesOf(n int, gen func(i int) float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = gen(i)
	}
	return s
}

func TestBeta_SelfCorrelation(t *testing.T) {
	// beta(x, x) must be exactly 1 with perfect correlation.
	x := seriesOf(40, func(i int) float64 {
		return 0.01 * math.Sin(float64(i)) * float64(i%5+1)
	})

	res, err := Beta(x, x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(res.Beta, 1.0, 1e-9) {
		t.Errorf("expected beta 1.0, got %.12f", res.Beta)
	}
	if !almostEqual(res.Correlation, 1.0, 1e-9) {
		t.Errorf("expected correlation 1.0, got %.12f", res.Correlation)
	}
	if !almostEqual(res.R2, 1.0, 1e-9) {
		t.Errorf("expected R2 1.0, got %.12f", res.R2)
	}
	if res.Confidence != ConfidenceHigh {
		t.Errorf("expected high confidence for n=40 R2=1, got %s", res.Confidence)
	}
}

func TestBeta_IdenticalShortSeries(t *testing.T) {
	// The example scenario: identical 4-point series is below the minimum
	// sample, so the default result comes back with an explicit error.
	x := []float64{0.1, -0.05, 0.2, 0.0}

	res, err := Beta(x, x)
	if !errors.Is(err, ErrInsufficientSample) {
		t.Fatalf("expected ErrInsufficientSample, got %v", err)
	}
	if res.Beta != DefaultBeta {
		t.Errorf("expected default beta %.1f, got %.4f", DefaultBeta, res.Beta)
	}
	if res.Confidence != ConfidenceLow {
		t.Errorf("expected low confidence, got %s", res.Confidence)
	}
}

func TestBeta_ZeroVarianceBenchmark(t *testing.T) {
	asset := seriesOf(30, func(i int) float64 { return 0.01 * float64(i%3) })
	bench := make([]float64, 30) // all-zero returns, zero variance

	res, err := Beta(asset, bench)
	if err != nil {
		t.Fatalf("zero-variance benchmark must not fail: %v", err)
	}
	if res.Beta != DefaultBeta {
		t.Errorf("expected default beta %.1f, got %.4f", DefaultBeta, res.Beta)
	}
	if res.Confidence != ConfidenceLow {
		t.Errorf("expected low confidence, got %s", res.Confidence)
	}
}

func TestBeta_LengthMismatch(t *testing.T) {
	_, err := Beta(make([]float64, 30), make([]float64, 29))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBeta_ScaledBenchmark(t *testing.T) {
	// asset = 2 * bench implies beta = 2 and R2 = 1.
	bench := seriesOf(48, func(i int) float64 { return 0.005 * math.Cos(float64(i)) })
	asset := make([]float64, len(bench))
	for i, r := range bench {
		asset[i] = 2 * r
	}

	res, err := Beta(asset, bench)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(res.Beta, 2.0, 1e-9) {
		t.Errorf("expected beta 2.0, got %.12f", res.Beta)
	}
	if res.Confidence != ConfidenceHigh {
		t.Errorf("expected high confidence, got %s", res.Confidence)
	}
}
