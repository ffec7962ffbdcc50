package atmos

import "math"

// Exponential integral constants
const (
	// E1Floor bounds the E1 argument away from the x=0 singularity
	E1Floor = 1.0e-6
	// E1SeriesLimit is where E1 switches from the series to the asymptotic form
	E1SeriesLimit = 3.0
	// e1SeriesTerms is the order of the series expansion
	e1SeriesTerms = 11

	eulerGamma = 0.57721566490153286
)

// E1 returns the first exponential integral. For x < 3 it sums the series
//
//	E1(x) = -gamma - ln(x) - sum_{k=1}^{11} (-x)^k / (k k!)
//
// and for x >= 3 it returns the asymptotic form e^-x / x. Arguments below
// E1Floor are raised to E1Floor.
func E1(x float64) float64 {
	if x < E1Floor {
		x = E1Floor
	}
	if x >= E1SeriesLimit {
		return math.Exp(-x) / x
	}

	sum := 0.0
	term := 1.0 // (-x)^k / k!
	for k := 1; k <= e1SeriesTerms; k++ {
		term *= -x / float64(k)
		sum += term / float64(k)
	}
	return -eulerGamma - math.Log(x) - sum
}

// e1Kernel returns K(x) = ∫_0^x E1(t) dt = 1 - E2(x) = 1 - e^-x + x E1(x).
// K rises from 0 at x=0 to 1 as x grows.
func e1Kernel(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return 1.0 - math.Exp(-x) + x*E1(x)
}
