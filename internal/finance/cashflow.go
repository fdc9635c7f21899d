package finance

import (
	"fmt"
	"math"
)

// IRR solver bounds and budget. The bracket is wide enough for any realistic
// investment cash-flow sequence.
const (
	IRRLowerBound    = -0.99
	IRRUpperBound    = 10.0
	IRRMaxIterations = 200
	IRRTolerance     = 1e-7
)

// NPV computes the net present value of a cash-flow sequence at the given
// discount rate. flows[0] occurs at t=0 and is not discounted.
func NPV(rate float64, flows []float64) float64 {
	npv := 0.0
	for t, cf := range flows {
		npv += cf / math.Pow(1+rate, float64(t))
	}
	return npv
}

// IRR finds the discount rate at which NPV is zero via bisection.
//
// The sequence must contain at least one sign change (an outlay and a
// payback) for a root to exist in the bracket; otherwise IRR returns zero
// and ErrNoConvergence. If the iteration budget runs out the midpoint of the
// final bracket is returned together with ErrNoConvergence, so callers can
// choose between using the approximation and reporting failure.
func IRR(flows []float64) (float64, error) {
	if len(flows) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 cash flows, have %d", ErrInsufficientSample, len(flows))
	}

	lo, hi := IRRLowerBound, IRRUpperBound
	npvLo := NPV(lo, flows)
	npvHi := NPV(hi, flows)
	if npvLo*npvHi > 0 {
		return 0, fmt.Errorf("%w: no sign change in bracket [%.2f, %.2f]", ErrNoConvergence, lo, hi)
	}

	var mid float64
	for i := 0; i < IRRMaxIterations; i++ {
		mid = (lo + hi) / 2
		npvMid := NPV(mid, flows)

		if math.Abs(npvMid) < IRRTolerance || (hi-lo)/2 < IRRTolerance {
			return mid, nil
		}

		if npvLo*npvMid < 0 {
			hi = mid
		} else {
			lo = mid
			npvLo = npvMid
		}
	}

	return (lo + hi) / 2, fmt.Errorf("%w: %d iterations exhausted", ErrNoConvergence, IRRMaxIterations)
}

// ROI is the simple terminal-value ratio: (terminal-initial)/initial.
func ROI(initial, terminal float64) float64 {
	if initial == 0 {
		return 0
	}
	return (terminal - initial) / initial
}

// PaybackPeriod returns the number of whole periods until cumulative cash
// flow turns non-negative, or -1 if the investment never pays back.
func PaybackPeriod(flows []float64) int {
	cumulative := 0.0
	for t, cf := range flows {
		cumulative += cf
		if cumulative >= 0 {
			return t
		}
	}
	return -1
}
