package finance

import "sort"

// MaxDrawdown computes the worst peak-to-trough decline of a cumulative
// growth path built from periodic returns. The result is <= 0 (a -0.30
// reading means a 30% drawdown).
func MaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	cumulative := 1.0
	peak := 1.0
	maxDD := 0.0

	for _, r := range returns {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		dd := (cumulative - peak) / peak
		if dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// ValueAtRisk estimates the historical VaR at the given confidence level
// (e.g. 0.95). The result is a positive loss fraction per period.
func ValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * (1 - confidence))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return -sorted[idx]
}

// ExpectedShortfall estimates the conditional VaR: the mean loss of the tail
// beyond the VaR cutoff. Positive loss fraction per period.
func ExpectedShortfall(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	cutoff := int(float64(len(sorted)) * (1 - confidence))
	if cutoff <= 0 {
		cutoff = 1
	}

	sum := 0.0
	for i := 0; i < cutoff; i++ {
		sum += sorted[i]
	}
	return -sum / float64(cutoff)
}

// SharpeRatio is the excess annual return per unit of annual volatility.
// Zero volatility yields zero rather than a division blowup.
func SharpeRatio(annualReturn, riskFree, annualVolatility float64) float64 {
	if annualVolatility == 0 {
		return 0
	}
	return (annualReturn - riskFree) / annualVolatility
}
