package finance

import (
	"fmt"
	"math"
)

// CAGR computes the compound annual growth rate from a start and end price
// over the elapsed years: (end/start)^(1/years) - 1.
func CAGR(start, end, years float64) (float64, error) {
	if start <= 0 || end <= 0 {
		return 0, fmt.Errorf("%w: prices must be positive (start=%.4f end=%.4f)", ErrInvalidInput, start, end)
	}
	if years <= 0 {
		return 0, fmt.Errorf("%w: years must be positive, got %.4f", ErrInvalidInput, years)
	}

	// For very short windows a compound rate is noise; use the simple return.
	if years < 0.25 {
		return end/start - 1, nil
	}
	return math.Pow(end/start, 1/years) - 1, nil
}

// CAGRFromSeries computes CAGR from the first and last element of an
// ascending price series spanning the given number of years.
func CAGRFromSeries(prices []float64, years float64) (float64, error) {
	if len(prices) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 prices, have %d", ErrInsufficientSample, len(prices))
	}
	return CAGR(prices[0], prices[len(prices)-1], years)
}

// ProjectPrice compounds a current price forward at the given annual growth
// rate: price * (1+rate)^years.
func ProjectPrice(price, rate, years float64) float64 {
	return price * math.Pow(1+rate, years)
}

// Adjustments are additive discount-rate spreads derived from on-chain
// valuation ratios and market liquidity. Positive values raise the rate.
type Adjustments struct {
	MVRV      float64 `json:"mvrv"`
	AVIV      float64 `json:"aviv"`
	Liquidity float64 `json:"liquidity"`
}

// Total sums the individual spreads.
func (a Adjustments) Total() float64 {
	return a.MVRV + a.AVIV + a.Liquidity
}

// MinDiscountRate floors the CAPM rate so deeply negative betas cannot drive
// the discount rate below a sane lower bound.
const MinDiscountRate = 0.01

// DiscountRate builds a CAPM-style discount rate: riskFree + beta*premium,
// plus the on-chain/liquidity adjustments, floored at MinDiscountRate.
func DiscountRate(riskFree, beta, marketPremium float64, adj Adjustments) float64 {
	rate := riskFree + beta*marketPremium + adj.Total()
	return math.Max(rate, MinDiscountRate)
}

// MVRVAdjustment maps an MVRV ratio to a discount-rate spread. Readings far
// above 1 indicate overvaluation and add risk premium; readings below 1
// subtract a little.
func MVRVAdjustment(mvrv float64) float64 {
	switch {
	case mvrv <= 0:
		return 0 // missing data
	case mvrv > 3.0:
		return 0.04
	case mvrv > 2.0:
		return 0.02
	case mvrv > 1.0:
		return 0.01
	default:
		return -0.005
	}
}

// LiquidityAdjustment maps daily volume as a fraction of market cap to a
// discount-rate spread. Thinly traded assets carry extra premium.
func LiquidityAdjustment(volumeToMarketCap float64) float64 {
	switch {
	case volumeToMarketCap <= 0:
		return 0.02 // unknown liquidity, assume thin
	case volumeToMarketCap < 0.01:
		return 0.03
	case volumeToMarketCap < 0.05:
		return 0.015
	default:
		return 0
	}
}
