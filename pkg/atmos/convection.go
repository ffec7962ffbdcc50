package atmos

import (
	"math"

	"github.com/chrissnell/stellaratm/internal/constants"
)

// Convection constants
const (
	// GammaEff is the adiabatic exponent of an ideal monatomic gas
	GammaEff = 5.0 / 3.0
	// MixLengthSun is the solar mixing length in pressure scale heights
	MixLengthSun = 1.0
	// BetaSun is the solar convective velocity parameter
	BetaSun = 0.5
)

// AdiabaticGradient returns dlnT/dlnP for adiabatic compression, 1 - 1/gamma
func AdiabaticGradient() float64 {
	return 1.0 - 1.0/GammaEff
}

// ClassifyStability applies the Schwarzschild test at each interior depth
// using centered differences. stable[i] is true when
//
//	dlnT/dlnP < (1 - 1/gamma) + dlnmu/dlnP
//
// The top and bottom levels have no centered difference; the top is
// reported stable and the bottom repeats its upper neighbour.
func ClassifyStability(press, temp Profile, mu []float64) ([]bool, error) {
	n := press.Len()
	if n < 3 {
		return nil, ErrTooFewDepths
	}
	if err := sameLength(n, temp); err != nil {
		return nil, err
	}
	if len(mu) != n {
		return nil, ErrLengthMismatch
	}

	gradAd := AdiabaticGradient()
	stable := make([]bool, n)
	stable[0] = true
	for i := 1; i < n-1; i++ {
		dlnP := press.Ln[i+1] - press.Ln[i-1]
		if !(dlnP > 0) {
			stable[i] = true
			continue
		}
		dlnT := temp.Ln[i+1] - temp.Ln[i-1]
		dlnMu := math.Log(mu[i+1]) - math.Log(mu[i-1])
		stable[i] = dlnT/dlnP < gradAd+dlnMu/dlnP
	}
	stable[n-1] = stable[n-2]

	return stable, nil
}

// BoundaryFromStability locates the convection boundary in a stability
// classification. An unstable layer with stable layers on both sides is
// treated as stable. Scanning up from the bottom, the boundary is the first
// layer that is stable together with the layer above it. Returns len(stable)
// when the bottom is already stable (no convective zone) and 0 when no
// stable pair exists.
func BoundaryFromStability(stable []bool) int {
	n := len(stable)
	if n < 3 {
		return n
	}

	s := make([]bool, n)
	copy(s, stable)
	for i := 1; i < n-1; i++ {
		if !stable[i] && stable[i-1] && stable[i+1] {
			s[i] = true
		}
	}

	if s[n-2] {
		return n
	}
	for i := n - 3; i >= 1; i-- {
		if s[i] && s[i-1] {
			return i
		}
	}
	return 0
}

// ConvectionBoundary returns the index of the first radiatively stable layer
// scanning up from the bottom, or press.Len() when there is no convective
// zone.
func ConvectionBoundary(press, temp Profile, mu []float64) (int, error) {
	stable, err := ClassifyStability(press, temp, mu)
	if err != nil {
		return 0, err
	}
	return BoundaryFromStability(stable), nil
}

// ConvectionResult is the outcome of a convective adjustment pass
type ConvectionResult struct {
	Boundary     int     // first stable layer from the bottom; Len() when none
	Temp         Profile // temperature after the convective rewrite
	MixingLength float64 // alpha, in pressure scale heights
	Beta         float64
	RefIndex     int     // depth nearest tau = 1
	ScaleHeight  float64 // pressure scale height at RefIndex, cm
}

// Convective reports whether a convective zone was found
func (c ConvectionResult) Convective() bool {
	return c.Boundary < c.Temp.Len()
}

// MixingParameters returns the mixing length (in scale heights) and beta
// rescaled from their solar values by (Teff/Teff_sun)^4 (logg_sun/logg)^2.
func MixingParameters(star Stellar) (alpha, beta float64) {
	scale := math.Pow(star.Teff/constants.TeffSun, 4) * math.Pow(constants.LogGSun/star.LogG, 2)
	return MixLengthSun * scale, BetaSun * scale
}

// ConvectiveAdjust detects the convective zone and rebuilds the temperature
// at and below its boundary. Starting from the layer above the boundary,
// T is integrated downward in ln(tau) with the first-order step
//
//	dT = tau/(kappa rho) * (g/c_p + delta) * dln(tau)
//
// where g/c_p is the adiabatic gradient and delta the mixing-length
// superadiabatic excess
//
//	delta = (F / (beta rho c_p l^2 sqrt(g/T)))^(2/3),  F = sigma Teff^4,  l = alpha H_p.
func ConvectiveAdjust(star Stellar, tau TauGrid, temp, press, rho, kappa Profile, mu []float64) (ConvectionResult, error) {
	if err := star.Validate(); err != nil {
		return ConvectionResult{}, err
	}
	n := tau.Len()
	if err := sameLength(n, temp, press, rho, kappa); err != nil {
		return ConvectionResult{}, err
	}

	boundary, err := ConvectionBoundary(press, temp, mu)
	if err != nil {
		return ConvectionResult{}, err
	}

	g := star.Gravity()
	alpha, beta := MixingParameters(star)

	res := ConvectionResult{
		Boundary:     boundary,
		Temp:         temp.Clone(),
		MixingLength: alpha,
		Beta:         beta,
		RefIndex:     NearestIndex(tau.Lin, 1.0),
	}
	res.ScaleHeight = press.Lin[res.RefIndex] / (rho.Lin[res.RefIndex] * g)

	if boundary >= n {
		return res, nil
	}

	flux := constants.StefanBoltz * math.Pow(star.Teff, 4)
	cpFac := GammaEff / (GammaEff - 1.0) * constants.Boltzmann / constants.AMU

	start := max(boundary, 1)
	for i := start; i < n; i++ {
		k := i - 1
		tPrev := res.Temp.Lin[k]
		cp := cpFac / mu[k]
		hp := press.Lin[k] / (rho.Lin[k] * g)
		l := alpha * hp

		excess := math.Pow(flux/(beta*rho.Lin[k]*cp*l*l*math.Sqrt(g/tPrev)), 2.0/3.0)
		dTdz := g/cp + excess
		dzdlnTau := math.Exp(tau.Ln[k] - kappa.Ln[k] - rho.Ln[k])

		res.Temp.Set(i, tPrev+dTdz*dzdlnTau*(tau.Ln[i]-tau.Ln[k]))
	}

	return res, nil
}
