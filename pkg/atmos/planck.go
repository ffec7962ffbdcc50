package atmos

import (
	"math"

	"github.com/chrissnell/stellaratm/internal/constants"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// PlanckSamples is the number of log-spaced wavelengths per bin integral
const PlanckSamples = 25

var (
	// ln(2 h c^2)
	lnPlanckPrefactor = math.Log(2.0) + constants.LnPlanck + 2.0*constants.LnSpeedOfLight
	// h c / k_B, cm K
	hcOverK = constants.Planck * constants.SpeedOfLight / constants.Boltzmann
)

// lnExpm1 returns ln(e^x - 1) for x > 0 without overflow
func lnExpm1(x float64) float64 {
	if x > 50 {
		return x
	}
	return math.Log(math.Expm1(x))
}

// PlanckLambda returns B_lambda(T) (erg/s/cm^2/sr/cm) and its temperature
// derivative at wavelength lambda (cm).
func PlanckLambda(lambda, temp float64) (b, dbdt float64) {
	x := hcOverK / (lambda * temp)
	lnB := lnPlanckPrefactor - 5.0*math.Log(lambda) - lnExpm1(x)
	b = math.Exp(lnB)
	// dB/dT = B x e^x / ((e^x - 1) T)
	dbdt = b * x / (temp * -math.Expm1(-x))
	return b, dbdt
}

// PlanckBin integrates B_lambda and dB_lambda/dT over [lo, hi] (cm) using
// log-spaced samples and the trapezoid rule in ln(lambda).
func PlanckBin(lo, hi, temp float64) (b, dbdt float64) {
	lambdas := make([]float64, PlanckSamples)
	floats.LogSpan(lambdas, lo, hi)

	lnLambda := make([]float64, PlanckSamples)
	bl := make([]float64, PlanckSamples)
	dbl := make([]float64, PlanckSamples)
	for i, lam := range lambdas {
		lnLambda[i] = math.Log(lam)
		bv, dv := PlanckLambda(lam, temp)
		// d(lambda) = lambda d(ln lambda)
		bl[i] = bv * lam
		dbl[i] = dv * lam
	}

	return integrate.Trapezoidal(lnLambda, bl), integrate.Trapezoidal(lnLambda, dbl)
}
