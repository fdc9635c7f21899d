package finance

import "errors"

var (
	// ErrInsufficientSample is returned when a series is too short for the
	// requested estimate to be meaningful.
	ErrInsufficientSample = errors.New("insufficient sample size")

	// ErrNoConvergence is returned when an iterative solver exhausts its
	// iteration budget or the root is not bracketed. The accompanying value
	// is the solver's best approximation and may still be used, but callers
	// must disclose it as approximate.
	ErrNoConvergence = errors.New("solver did not converge")

	// ErrInvalidInput is returned for arguments outside a function's domain
	// (non-positive prices, zero horizon, mismatched lengths).
	ErrInvalidInput = errors.New("invalid input")
)
