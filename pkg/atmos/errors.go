package atmos

import "errors"

// Sentinel errors for the fail-fast conditions of the solver stages.
// Numerical trouble inside a stage is absorbed by clamps and floors and is
// never reported through these.
var (
	// ErrTooFewDepths is returned when a grid or profile has fewer than two levels.
	ErrTooFewDepths = errors.New("atmos: at least two depth levels are required")

	// ErrBadTauBounds is returned when log10 tau max is not above log10 tau min.
	ErrBadTauBounds = errors.New("atmos: log10 tau bounds must satisfy min < max")

	// ErrNonMonotonicTau is returned when an optical depth grid is not strictly increasing.
	ErrNonMonotonicTau = errors.New("atmos: optical depth grid is not strictly increasing")

	// ErrNonPositive is returned when a temperature, pressure or extinction input is <= 0.
	ErrNonPositive = errors.New("atmos: non-positive physical input")

	// ErrNonFinite is returned when an input contains NaN or Inf.
	ErrNonFinite = errors.New("atmos: NaN or Inf in input")

	// ErrLengthMismatch is returned when depth-indexed inputs disagree in length.
	ErrLengthMismatch = errors.New("atmos: depth arrays differ in length")
)
