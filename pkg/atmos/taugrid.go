package atmos

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Default grid bounds and size used by the driver
const (
	DefaultNumDeps     = 64
	DefaultLog10TauMin = -6.0
	DefaultLog10TauMax = 2.0
)

// TauGrid is the reference Rosseland optical depth abscissa. It is built
// once per model and never mutated.
type TauGrid = Profile

// NewTauGrid returns n optical depths whose log10 values are evenly spaced
// between log10Min and log10Max inclusive.
func NewTauGrid(n int, log10Min, log10Max float64) (TauGrid, error) {
	if n < 2 {
		return TauGrid{}, ErrTooFewDepths
	}
	if !(log10Max > log10Min) {
		return TauGrid{}, ErrBadTauBounds
	}

	lnTau := make([]float64, n)
	floats.Span(lnTau, log10Min*math.Ln10, log10Max*math.Ln10)

	return ProfileFromLog(lnTau), nil
}

// ValidateTauGrid checks that a grid is usable as a depth abscissa
func ValidateTauGrid(tau TauGrid) error {
	if tau.Len() < 2 {
		return ErrTooFewDepths
	}
	if err := tau.Validate(); err != nil {
		return err
	}
	for i := 1; i < tau.Len(); i++ {
		if !(tau.Ln[i] > tau.Ln[i-1]) {
			return ErrNonMonotonicTau
		}
	}
	return nil
}
