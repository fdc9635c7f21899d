package finance

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// DefaultMonteCarloPaths balances band stability against request latency.
const DefaultMonteCarloPaths = 2000

// Bands are the percentile price levels at the simulation horizon.
type Bands struct {
	P5     float64 `json:"p5"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	P95    float64 `json:"p95"`
	Paths  int     `json:"paths"`
}

// MonteCarloBands simulates geometric-Brownian daily price paths from the
// mean and standard deviation of observed daily returns and returns
// percentile bands of the terminal price. mu and sigma are per-period (daily)
// statistics; horizonDays is the number of steps. A fixed seed makes the
// bands reproducible.
func MonteCarloBands(currentPrice, mu, sigma float64, horizonDays, paths int, seed int64) (Bands, error) {
	if currentPrice <= 0 {
		return Bands{}, fmt.Errorf("%w: current price must be positive, got %.4f", ErrInvalidInput, currentPrice)
	}
	if horizonDays <= 0 {
		return Bands{}, fmt.Errorf("%w: horizon must be positive, got %d", ErrInvalidInput, horizonDays)
	}
	if paths <= 0 {
		paths = DefaultMonteCarloPaths
	}

	rng := rand.New(rand.NewSource(seed))

	// Log-return drift with the usual Ito correction.
	drift := math.Log(1+mu) - 0.5*sigma*sigma

	terminals := make([]float64, paths)
	for p := 0; p < paths; p++ {
		logPrice := math.Log(currentPrice)
		for d := 0; d < horizonDays; d++ {
			logPrice += drift + sigma*rng.NormFloat64()
		}
		terminals[p] = math.Exp(logPrice)
	}
	sort.Float64s(terminals)

	return Bands{
		P5:     percentile(terminals, 0.05),
		P25:    percentile(terminals, 0.25),
		Median: percentile(terminals, 0.50),
		P75:    percentile(terminals, 0.75),
		P95:    percentile(terminals, 0.95),
		Paths:  paths,
	}, nil
}

// percentile reads the p-quantile from an already sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
