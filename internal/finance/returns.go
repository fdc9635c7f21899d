package finance

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is used to annualize daily return statistics. Crypto
// trades every day, but benchmark series follow the equity calendar, so the
// equity convention is used for both to keep comparisons consistent.
const TradingDaysPerYear = 252

// Returns converts a price series into period-over-period fractional returns.
// The result has length len(prices)-1. A zero previous price yields a zero
// return for that period rather than a division blowup.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}
	return returns
}

// Mean calculates the arithmetic mean of a series.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// Variance calculates the population variance of a series.
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// StdDev calculates the standard deviation of a series.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Covariance calculates the covariance between two equal-length series.
func Covariance(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// Correlation calculates the Pearson correlation between two equal-length
// series. Returns 0 when either series is degenerate.
func Correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// AnnualizedVolatility scales the standard deviation of daily returns by
// sqrt(252 trading days).
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// AnnualizedReturn compounds daily returns into an annual rate:
// ((1+r1)*...*(1+rN))^(252/N) - 1.
func AnnualizedReturn(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}

	cumulative := 1.0
	for _, r := range dailyReturns {
		cumulative *= 1 + r
	}
	if cumulative <= 0 {
		return -1
	}
	return math.Pow(cumulative, TradingDaysPerYear/float64(len(dailyReturns))) - 1
}
