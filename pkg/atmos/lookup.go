package atmos

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// Interpolator is a 1-D piecewise linear interpolant over a monotonic
// abscissa. Decreasing abscissae are accepted and reversed internally.
// Queries outside the abscissa range return the nearest end value.
type Interpolator struct {
	pl interp.PiecewiseLinear
}

// NewInterpolator fits xs -> ys. xs must be strictly monotonic.
func NewInterpolator(xs, ys []float64) (*Interpolator, error) {
	if len(xs) != len(ys) {
		return nil, ErrLengthMismatch
	}
	if len(xs) < 2 {
		return nil, ErrTooFewDepths
	}

	x, y := xs, ys
	if xs[len(xs)-1] < xs[0] {
		x = reversed(xs)
		y = reversed(ys)
	}
	for i := 1; i < len(x); i++ {
		if !(x[i] > x[i-1]) {
			return nil, ErrNonMonotonicTau
		}
	}

	it := &Interpolator{}
	if err := it.pl.Fit(x, y); err != nil {
		return nil, err
	}
	return it, nil
}

// At evaluates the interpolant
func (it *Interpolator) At(x float64) float64 {
	return it.pl.Predict(x)
}

// Interpolate is a one-shot linear interpolation of ys(xs) at x
func Interpolate(xs, ys []float64, x float64) (float64, error) {
	it, err := NewInterpolator(xs, ys)
	if err != nil {
		return 0, err
	}
	return it.At(x), nil
}

// NearestIndex returns the index of the element of the increasing slice xs
// closest to target. Targets outside the range map to the end indices.
func NearestIndex(xs []float64, target float64) int {
	n := len(xs)
	switch {
	case n == 0:
		return -1
	case target <= xs[0]:
		return 0
	case target >= xs[n-1]:
		return n - 1
	}

	i := floats.Within(xs, target)
	if i < 0 {
		return n - 1
	}
	if target-xs[i] > xs[i+1]-target {
		return i + 1
	}
	return i
}

func reversed(s []float64) []float64 {
	r := make([]float64, len(s))
	for i, v := range s {
		r[len(s)-1-i] = v
	}
	return r
}
