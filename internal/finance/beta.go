package finance

import "fmt"

// Confidence tiers for a beta estimate, derived from R-squared and sample size.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// Beta estimation thresholds.
const (
	MinBetaSamples = 24
	// DefaultBeta is used when the estimate is undefined (degenerate
	// benchmark) or the sample is too short.
	DefaultBeta = 1.0
)

// BetaResult holds a beta estimate together with its regression diagnostics.
type BetaResult struct {
	Beta        float64 `json:"beta"`
	R2          float64 `json:"r2"`
	Correlation float64 `json:"correlation"`
	SampleSize  int     `json:"sample_size"`
	Confidence  string  `json:"confidence"`
}

// Beta estimates the sensitivity of asset returns to benchmark returns as
// cov(asset, bench) / var(bench).
//
// Fewer than MinBetaSamples points (or a length mismatch) returns the default
// result and ErrInsufficientSample; a zero-variance benchmark returns the
// default with low confidence and no error, since dividing by zero has no
// meaningful answer and the caller still needs a usable number.
func Beta(asset, bench []float64) (BetaResult, error) {
	n := len(asset)
	if n != len(bench) {
		return defaultBetaResult(n), fmt.Errorf("%w: series lengths %d and %d differ", ErrInvalidInput, n, len(bench))
	}
	if n < MinBetaSamples {
		return defaultBetaResult(n), fmt.Errorf("%w: need %d returns, have %d", ErrInsufficientSample, MinBetaSamples, n)
	}

	benchVar := Variance(bench)
	if benchVar == 0 {
		return defaultBetaResult(n), nil
	}

	corr := Correlation(asset, bench)
	r2 := corr * corr

	result := BetaResult{
		Beta:        Covariance(asset, bench) / benchVar,
		R2:          r2,
		Correlation: corr,
		SampleSize:  n,
	}
	result.Confidence = betaConfidence(r2, n)
	return result, nil
}

func defaultBetaResult(n int) BetaResult {
	return BetaResult{Beta: DefaultBeta, SampleSize: n, Confidence: ConfidenceLow}
}

func betaConfidence(r2 float64, n int) string {
	switch {
	case r2 > 0.6 && n > 36:
		return ConfidenceHigh
	case r2 > 0.3 && n > 24:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
